package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/shared"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"user", shared.NewUserError("Add at least one line item"), http.StatusBadRequest, "Add at least one line item"},
		{"not found", &erpapi.Error{StatusCode: 404, Detail: "Purchase order not found"}, http.StatusNotFound, "Purchase order not found"},
		{"unauthorized", &erpapi.Error{StatusCode: 401, Detail: "Not authenticated"}, http.StatusUnauthorized, "Not authenticated"},
		{"validation", &erpapi.Error{StatusCode: 422, Detail: "A, B"}, http.StatusBadRequest, "A, B"},
		{"upstream", &erpapi.Error{Err: errors.New("refused")}, http.StatusBadGateway, "Error"},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tc.status, problem.Status)
			assert.Equal(t, tc.detail, problem.Detail)
		})
	}
}
