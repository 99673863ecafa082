// internal/navigator/result_test.go
package navigator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
)

func TestResult_String(t *testing.T) {
	assert.Equal(t, "OK", ok().String())
	assert.Equal(t, "42", payload("42").String())
	assert.Equal(t, "", payload("").String(), "an empty payload is still a payload")
	assert.Equal(t, "ERROR", failure(ReasonNotFound, browser.ErrElementNotFound).String())
}

func TestResult_Propagate(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name    string
		res     Result
		wantErr bool
	}{
		{"ok", ok(), false},
		{"payload", payload("x"), false},
		{"session fatal", failure(ReasonSessionFatal, cause), true},
		{"navigation", failure(ReasonNavigation, cause), true},
		{"not found", failure(ReasonNotFound, cause), false},
		{"internal", failure(ReasonInternal, cause), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.res.Propagate()
			if tt.wantErr {
				assert.ErrorIs(t, err, cause)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{fmt.Errorf("%w: launch", browser.ErrSessionFatal), ReasonSessionFatal},
		{browser.ErrNoBrowsingContext, ReasonNoContext},
		{fmt.Errorf("%w: 3 not in [0, 2)", browser.ErrTabIndexOutOfRange), ReasonOutOfRange},
		{browser.ErrNoActivePage, ReasonNoActivePage},
		{browser.ErrElementNotFound, ReasonNotFound},
		{browser.ErrNoBoundingBox, ReasonNoBox},
		{errors.New("anything else"), ReasonInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), tt.err.Error())
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "failure", StatusFailure.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
