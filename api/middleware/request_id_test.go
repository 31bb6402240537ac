package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/pkg/types"
)

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/assets", nil)
	req.Header.Set(types.RequestIDHeader, "batch-7:asset.sync")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get(types.RequestIDHeader); got != "batch-7:asset.sync" {
		t.Fatalf("expected caller id to be echoed got %q", got)
	}
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	cases := map[string]string{
		"missing":  "",
		"spaces":   "drop table assets",
		"too long": strings.Repeat("a", 129),
	}
	for name, incoming := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/assets", nil)
			if incoming != "" {
				req.Header.Set(types.RequestIDHeader, incoming)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			got := resp.Header().Get(types.RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected a generated uuid got %q", got)
			}
		})
	}
}
