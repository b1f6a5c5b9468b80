package common

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndValidateURLParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		paramValue string
		wantValue  string
		wantErrMsg string
	}{
		{name: "uuid", paramValue: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", wantValue: "1b4e28ba-2fa1-11d2-883f-0016d3cca427"},
		{name: "encoded slash", paramValue: "acme%2Froom-7", wantValue: "acme/room-7"},
		{name: "encoded space", paramValue: "room%207", wantErrMsg: "errorId cannot contain whitespace"},
		{name: "encoded tab", paramValue: "room%09", wantErrMsg: "errorId cannot contain whitespace"},
		{name: "blank", paramValue: "%20", wantErrMsg: "errorId cannot be empty"},
		{name: "empty", paramValue: "", wantErrMsg: "errorId cannot be empty"},
		{name: "invalid hex", paramValue: "room%ZZ", wantErrMsg: "invalid URL encoding in errorId"},
		{name: "incomplete percent", paramValue: "room%", wantErrMsg: "invalid URL encoding in errorId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("POST", "/errors/x/retry", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("errorId", tt.paramValue)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := GetAndValidateURLParam(req, "errorId")
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}
