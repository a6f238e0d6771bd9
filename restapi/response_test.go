/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/log/logtest"
	"github.com/acronis/shop-service/testutil"
)

const testDomain = "TestDomain"

func TestRespondJSON(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		type order struct {
			DeliveryAddress string `json:"delivery_address"`
			Products        []uint `json:"products"`
		}
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		o := &order{"Lenina 5", []uint{5, 9}}
		RespondJSON(resp, o, logger)
		testutil.RequireJSONInRecorder(t, resp, o, &order{})
		require.Empty(t, logger.Entries())
	})

	t.Run("html is not escaped", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondJSON(resp, map[string]string{"name": "<b>Tom & Jerry</b>"}, nil)
		require.Equal(t, `{"name":"<b>Tom & Jerry</b>"}`, resp.Body.String())
	})

	t.Run("marshaling error", func(t *testing.T) {
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondJSON(resp, make(chan bool), logger)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)
		_, found := logger.FindEntry("error while marshaling json for response body")
		require.True(t, found)
	})

	t.Run("nil data", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
		require.Equal(t, http.StatusNoContent, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)
	})
}

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	logger := logtest.NewRecorder()
	RespondError(resp, http.StatusNotFound,
		NewError(testDomain, ErrCodeNotFound, "User not found.").AddContext("user_id", 42), logger)
	testutil.RequireErrorInRecorder(t, resp, http.StatusNotFound, testDomain, ErrCodeNotFound)

	entry, found := logger.FindEntry("error in response")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	field, found := entry.FindField("error_code")
	require.True(t, found)
	require.Equal(t, ErrCodeNotFound, string(field.Bytes))
}

func TestRespondInternalError(t *testing.T) {
	resp := httptest.NewRecorder()
	logger := logtest.NewRecorder()
	RespondInternalError(resp, testDomain, logger)
	testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, testDomain, ErrCodeInternal)
	entry, found := logger.FindEntry("error in response")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)
}

func TestRespondMalformedRequestOrInternalError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondMalformedRequestOrInternalError(resp, testDomain,
		&MalformedRequestError{http.StatusBadRequest, "Bad product id."}, nil)
	testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, testDomain, "badRequest")

	resp = httptest.NewRecorder()
	RespondMalformedRequestOrInternalError(resp, testDomain, errors.New("connection refused"), nil)
	testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, testDomain, ErrCodeInternal)
}

func TestHTTPCode2ErrorCode(t *testing.T) {
	require.Equal(t, "notFound", httpCode2ErrorCode(http.StatusNotFound))
	require.Equal(t, "tooManyRequests", httpCode2ErrorCode(http.StatusTooManyRequests))
	require.Equal(t, "requestEntityTooLarge", httpCode2ErrorCode(http.StatusRequestEntityTooLarge))
	require.Equal(t, ErrCodeInternal, httpCode2ErrorCode(http.StatusInternalServerError))
}
