/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequestJSON(t *testing.T) {
	type product struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	tests := []struct {
		name          string
		contentType   string
		body          string
		strict        bool
		maxBodySize   uint64
		want          product
		wantErrStatus int
	}{
		{name: "ok", contentType: "application/json; charset=utf-8", body: `{"name":"Tea","price":1.5}`, want: product{"Tea", 1.5}},
		{name: "no content type", body: `{"name":"Tea"}`, want: product{Name: "Tea"}},
		{name: "unsupported content type", contentType: "text/plain", body: `{}`, wantErrStatus: http.StatusUnsupportedMediaType},
		{name: "empty body", body: ``, wantErrStatus: http.StatusBadRequest},
		{name: "bad json", body: `{"name":`, wantErrStatus: http.StatusBadRequest},
		{name: "syntax error", body: `{"name" "Tea"}`, wantErrStatus: http.StatusBadRequest},
		{name: "wrong type", body: `{"price":"cheap"}`, wantErrStatus: http.StatusBadRequest},
		{name: "unknown field in strict mode", body: `{"color":"red"}`, strict: true, wantErrStatus: http.StatusBadRequest},
		{name: "unknown field ignored", body: `{"name":"Tea","color":"red"}`, want: product{Name: "Tea"}},
		{name: "two objects", body: `{"name":"Tea"}{"name":"Coffee"}`, wantErrStatus: http.StatusBadRequest},
		{name: "too large", body: `{"name":"Very long tea name"}`, maxBodySize: 8, wantErrStatus: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.maxBodySize != 0 {
				SetRequestMaxBodySize(httptest.NewRecorder(), req, tt.maxBodySize)
			}
			var got product
			err := DecodeRequestJSON(req, &got, tt.strict)
			if tt.wantErrStatus != 0 {
				var reqErr *MalformedRequestError
				require.ErrorAs(t, err, &reqErr)
				require.Equal(t, tt.wantErrStatus, reqErr.HTTPStatusCode)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
