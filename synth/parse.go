package synth

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

type answer struct {
	Decision  string  `json:"decision"`
	Ticker    *string `json:"ticker"`
	Rationale string  `json:"rationale"`
}

// stripFences removes a surrounding ``` block with an optional language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{}") {
		s = s[i+1:]
	}
	// a tag on the same line as the body: ```json {...}```
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	if i > 0 && (s[i] == '{' || unicode.IsSpace(rune(s[i]))) {
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func failed(format string, args ...any) Decision {
	return Decision{Kind: Error, Rationale: fmt.Sprintf(format, args...)}
}

// Parse validates a model answer against the request it was given for.
func Parse(text string, req Request) Decision {
	body := stripFences(text)
	if body == "" {
		return failed("%v: the model refused or returned nothing", ErrEmptyResponse)
	}

	var a answer
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return failed("malformed response: %v", err)
	}

	ticker := ""
	if a.Ticker != nil {
		ticker = strings.TrimSpace(*a.Ticker)
	}
	kind := Kind(strings.ToUpper(strings.TrimSpace(a.Decision)))

	switch kind {
	case Hold:
		return Decision{Kind: Hold, Rationale: a.Rationale}

	case Buy:
		if req.Evaluation != BuyEvaluation {
			return failed("BUY is not a valid answer to a %s evaluation", req.Evaluation)
		}
		if ticker == "" {
			return failed("BUY without a ticker")
		}
		for _, c := range req.Candidates {
			if strings.EqualFold(c.Ticker, ticker) {
				return Decision{Kind: Buy, Ticker: c.Ticker, Rationale: a.Rationale}
			}
		}
		return failed("BUY %q is not one of the offered candidates", ticker)

	case Sell:
		if req.Evaluation != SellEvaluation || req.Position == nil {
			return failed("SELL is not a valid answer to a %s evaluation", req.Evaluation)
		}
		held := req.Position.Ticker
		if ticker != "" && !strings.EqualFold(ticker, held) {
			return failed("SELL %q does not match the held position %s", ticker, held)
		}
		return Decision{Kind: Sell, Ticker: held, Rationale: a.Rationale}
	}

	return failed("unknown decision %q", a.Decision)
}
