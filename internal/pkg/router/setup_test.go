package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Both route groups must satisfy the Router contract InstallRouter
// iterates over.
var (
	_ Router = (*HttpRouter)(nil)
	_ Router = (*ApiRouter)(nil)
)

func TestNewRouters(t *testing.T) {
	assert.NotNil(t, NewHttpRouter())
	assert.NotNil(t, NewApiRouter())
}
