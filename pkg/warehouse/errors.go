package warehouse

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// Static errors
var (
	ErrClickHouseResponse = errors.New("clickhouse error")
	ErrUpstreamTimeout    = errors.New("warehouse query timed out")
)

// ClickHouse server error codes
const (
	codeNoSuchColumnInTable  = 16
	codeBadArguments         = 36
	codeNumberOfArguments    = 42
	codeIllegalTypeOfArg     = 43
	codeUnknownFunction      = 46
	codeUnknownIdentifier    = 47
	codeTypeMismatch         = 53
	codeUnknownTable         = 60
	codeSyntaxError          = 62
	codeUnknownDatabase      = 81
	codeTimeoutExceeded      = 159
	codeReadonly             = 164
	codeUnknownUser          = 192
	codeRequiredPassword     = 194
	codeIPAddressNotAllowed  = 195
	codeNotAnAggregate       = 215
	codeNoCommonType         = 386
	codeAccessDenied         = 497
	codeAuthenticationFailed = 516
)

//nolint:gochecknoglobals // Lookup tables compiled once
var (
	authCodes = map[int]struct{}{
		codeReadonly:             {},
		codeUnknownUser:          {},
		codeRequiredPassword:     {},
		codeIPAddressNotAllowed:  {},
		codeAccessDenied:         {},
		codeAuthenticationFailed: {},
	}

	queryCodes = map[int]struct{}{
		codeNoSuchColumnInTable: {},
		codeBadArguments:        {},
		codeNumberOfArguments:   {},
		codeIllegalTypeOfArg:    {},
		codeUnknownFunction:     {},
		codeUnknownIdentifier:   {},
		codeTypeMismatch:        {},
		codeUnknownTable:        {},
		codeSyntaxError:         {},
		codeUnknownDatabase:     {},
		codeNotAnAggregate:      {},
		codeNoCommonType:        {},
	}

	exceptionCodePattern = regexp.MustCompile(`Code:\s*(\d+)`)
)

// AuthError is returned when the warehouse refuses the acting identity
type AuthError struct {
	Identity string
	Grant    string
	Database string
	Code     int
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("permission denied for warehouse user %q: %s ON %s.* is required: %s",
		e.Identity, e.Grant, e.Database, e.Message)
}

// QueryError is returned for malformed SQL or references to missing objects
type QueryError struct {
	Code    int
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error (code %d): %s", e.Code, e.Message)
}

// classifier maps raw server failures onto the error taxonomy
type classifier struct {
	identity string
	database string
	grant    string
}

func newClassifier(cfg *Config) classifier {
	user, db := cfg.identity()

	return classifier{identity: user, database: db, grant: cfg.RequiredGrant}
}

// classify turns a ClickHouse exception into an AuthError, a QueryError, a
// timeout or a generic response error. code is zero when unknown.
func (c classifier) classify(code, status int, message string) error {
	if _, ok := authCodes[code]; ok || (code == 0 && (status == http.StatusUnauthorized || status == http.StatusForbidden)) {
		return &AuthError{
			Identity: c.identity,
			Grant:    c.grant,
			Database: c.database,
			Code:     code,
			Message:  message,
		}
	}

	if _, ok := queryCodes[code]; ok || (code == 0 && (status == http.StatusBadRequest || status == http.StatusNotFound)) {
		return &QueryError{Code: code, Message: message}
	}

	if code == codeTimeoutExceeded {
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, message)
	}

	return fmt.Errorf("%w (status %d): %s", ErrClickHouseResponse, status, message)
}

// exceptionCode extracts the numeric code from a ClickHouse exception text
func exceptionCode(header, body string) int {
	if header != "" {
		if code, err := strconv.Atoi(header); err == nil {
			return code
		}
	}

	if m := exceptionCodePattern.FindStringSubmatch(body); len(m) == 2 {
		if code, err := strconv.Atoi(m[1]); err == nil {
			return code
		}
	}

	return 0
}
