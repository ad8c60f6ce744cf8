package warehouse

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	c := classifier{identity: "analyst", database: "clicks_data_prac", grant: "SELECT"}

	tests := []struct {
		name    string
		code    int
		status  int
		message string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "access denied",
			code:   codeAccessDenied,
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				t.Helper()

				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, "analyst", authErr.Identity)
				assert.Equal(t, "SELECT", authErr.Grant)
				assert.Contains(t, err.Error(), "SELECT ON clicks_data_prac.*")
			},
		},
		{
			name:   "forbidden without code",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				t.Helper()

				var authErr *AuthError
				assert.ErrorAs(t, err, &authErr)
			},
		},
		{
			name:    "unknown table",
			code:    codeUnknownTable,
			status:  http.StatusNotFound,
			message: "Table clicks_data_prac.nope does not exist",
			check: func(t *testing.T, err error) {
				t.Helper()

				var queryErr *QueryError
				require.ErrorAs(t, err, &queryErr)
				assert.Equal(t, codeUnknownTable, queryErr.Code)
				assert.Contains(t, err.Error(), "does not exist")
			},
		},
		{
			name:   "syntax error",
			code:   codeSyntaxError,
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				t.Helper()

				var queryErr *QueryError
				assert.ErrorAs(t, err, &queryErr)
			},
		},
		{
			name:   "server timeout",
			code:   codeTimeoutExceeded,
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				t.Helper()

				assert.ErrorIs(t, err, ErrUpstreamTimeout)
			},
		},
		{
			name:   "anything else",
			code:   241,
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				t.Helper()

				assert.ErrorIs(t, err, ErrClickHouseResponse)

				var authErr *AuthError
				assert.False(t, errors.As(err, &authErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, c.classify(tt.code, tt.status, tt.message))
		})
	}
}

func TestExceptionCode(t *testing.T) {
	assert.Equal(t, 60, exceptionCode("60", ""))
	assert.Equal(t, 62, exceptionCode("", "Code: 62. DB::Exception: Syntax error: failed at position 1"))
	assert.Equal(t, 497, exceptionCode("garbage", "Code: 497. DB::Exception: analyst: Not enough privileges."))
	assert.Equal(t, 0, exceptionCode("", "no code here"))
}
