package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestNewNormalizesRESTPort(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("Qdrant REST port configured, using gRPC port instead", nil, gomock.Any()).Times(1)

	conn := New(FromEndpoint("qdrant.local").WithPort(6333), mockLogger, nil)
	info := conn.ConnectionInfo()

	assert.Equal(t, vectordb.ProviderQdrant, info.Provider)
	assert.Equal(t, DefaultGRPCPort, info.Details["port"])
	assert.False(t, info.Connected)
}

func TestNewAppliesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := New(&Config{Endpoint: "localhost"}, NewMockLogger(ctrl), nil)

	assert.Equal(t, DefaultGRPCPort, conn.cfg.Port)
	assert.Equal(t, DefaultConfig().Timeout, conn.cfg.Timeout)
	assert.Equal(t, DefaultConfig().BatchSize, conn.cfg.BatchSize)
}

func TestSupportedFilterOperatorsAreServerSide(t *testing.T) {
	conn := New(DefaultConfig(), NewMockLogger(gomock.NewController(t)), nil)
	for _, op := range conn.SupportedFilterOperators() {
		assert.True(t, op.ServerSide, op.Name)
	}
}
