package agentgate

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware returns an http.Handler that asks the gate about each request
// before passing it to next. Requests that are not allowed receive a 403
// with a JSON body.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := callFromRequest(r)
		receipt, err := c.Check(r.Context(), call)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		if receipt.Verdict() != Allow {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked":     true,
				"receipt_id":  receipt.ID,
				"decision":    string(receipt.Verdict()),
				"risk":        receipt.Risk,
				"policy":      receipt.Policy,
				"explanation": receipt.Explanation,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callFromRequest maps an HTTP request to an http_request Call.
func callFromRequest(r *http.Request) Call {
	url := r.URL.String()
	if r.URL.Host == "" && r.Host != "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		url = scheme + "://" + r.Host + r.URL.RequestURI()
	}
	return Call{
		Tool: "http_request",
		Args: map[string]any{
			"url":    url,
			"method": strings.ToUpper(r.Method),
		},
	}
}
