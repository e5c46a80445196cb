package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tangle/internal/core/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := domain.DefaultConfig()

	assert.Equal(t, domain.StoreDriverSnapshot, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(".tangle", "graph.json"), cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Policy.CascadeOnRemove)
	assert.Equal(t, 4, cfg.Reconcile.Parallelism)
	assert.Equal(t, domain.DefaultPolicy(), cfg.Policy.StatusPolicy())
}

func TestPolicyConfig_StatusPolicy(t *testing.T) {
	p := domain.PolicyConfig{ReadyStatus: domain.StatusInProgress, KeepActiveWhenReady: true}.StatusPolicy()
	assert.Equal(t, domain.StatusInProgress, p.ReadyStatus)
	assert.True(t, p.KeepActiveWhenReady)

	empty := domain.PolicyConfig{}.StatusPolicy()
	assert.Equal(t, domain.StatusPending, empty.ReadyStatus)
}
