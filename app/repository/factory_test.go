package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactorySharesRepositories(t *testing.T) {
	f := NewFactory(nil)
	first := f.GetRepositories()
	assert.Same(t, first, f.GetRepositories())
	assert.NotNil(t, first.Library)
	assert.Nil(t, f.DB())
}
