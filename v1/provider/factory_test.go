package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/pinecone"
	"github.com/Aleph-Alpha/vectorinspector/v1/protoreg"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func newFactory() *Factory {
	return NewFactory(logger.NewNop(), nil)
}

func TestFactory_PgVectorHTTP(t *testing.T) {
	conn, err := newFactory().Create(Profile{
		ID:          "pg",
		Provider:    vectordb.ProviderPgVector,
		Config:      ConnectionConfig{Type: TypeHTTP, Host: "h", Database: "d", User: "u"},
		Credentials: Credentials{Password: "secret"},
	})
	require.NoError(t, err)

	info := conn.ConnectionInfo()
	assert.Equal(t, vectordb.ProviderPgVector, info.Provider)
	assert.False(t, info.Connected)
	assert.Equal(t, "h", info.Details["host"])
	assert.Equal(t, 5432, info.Details["port"])
	assert.Equal(t, "d", info.Details["database"])
	assert.Equal(t, "u", info.Details["user"])
	assert.NotContains(t, info.Details, "password")
	assert.Equal(t, vectordb.StateUnconnected, conn.State())
}

func TestFactory_PgVectorRejects(t *testing.T) {
	tests := []struct {
		name   string
		config ConnectionConfig
		want   error
	}{
		{"persistent type", ConnectionConfig{Type: TypePersistent, Path: "/tmp/x"}, ErrUnsupportedConnectionType},
		{"empty type", ConnectionConfig{Database: "d", User: "u"}, ErrUnsupportedConnectionType},
		{"missing database", ConnectionConfig{Type: TypeHTTP, User: "u"}, ErrMissingField},
		{"missing user", ConnectionConfig{Type: TypeHTTP, Database: "d"}, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := newFactory().Create(Profile{Provider: vectordb.ProviderPgVector, Config: tt.config})
			require.Error(t, err)
			assert.Nil(t, conn)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFactory_PineconeRequiresAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)
	mockLogger.EXPECT().Error("Cannot create connection from profile", gomock.Any(), gomock.Any()).Times(1)

	f := NewFactory(mockLogger, nil)
	conn, err := f.Create(Profile{
		Provider: vectordb.ProviderPinecone,
		Config:   ConnectionConfig{Type: TypeHTTP, Host: "ignored", Namespace: "ns"},
	})
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.True(t, IsConfigurationError(err))
	assert.ErrorIs(t, err, pinecone.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "pinecone requires an API key")
}

func TestFactory_Pinecone(t *testing.T) {
	conn, err := newFactory().Create(Profile{
		Provider:    vectordb.ProviderPinecone,
		Credentials: Credentials{APIKey: "pk"},
	})
	require.NoError(t, err)
	assert.Equal(t, vectordb.ProviderPinecone, conn.ProviderTag())
}

func TestFactory_UnknownProvider(t *testing.T) {
	for _, tag := range []vectordb.ProviderTag{"weaviate", "", "Chroma"} {
		_, err := newFactory().Create(Profile{Provider: tag})
		assert.ErrorIs(t, err, ErrUnsupportedProvider, "provider %q", tag)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
}

func TestFactory_ModeDispatch(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		wantTag  vectordb.ProviderTag
		wantMode string
	}{
		{
			name:     "chroma defaults to ephemeral",
			profile:  Profile{Provider: vectordb.ProviderChroma},
			wantTag:  vectordb.ProviderChroma,
			wantMode: TypeEphemeral,
		},
		{
			name:     "chroma persistent",
			profile:  Profile{Provider: vectordb.ProviderChroma, Config: ConnectionConfig{Type: TypePersistent, Path: t.TempDir()}},
			wantTag:  vectordb.ProviderChroma,
			wantMode: TypePersistent,
		},
		{
			name:     "qdrant ephemeral",
			profile:  Profile{Provider: vectordb.ProviderQdrant, Config: ConnectionConfig{Type: TypeEphemeral}},
			wantTag:  vectordb.ProviderQdrant,
			wantMode: TypeEphemeral,
		},
		{
			name:    "qdrant http",
			profile: Profile{Provider: vectordb.ProviderQdrant, Config: ConnectionConfig{Type: TypeHTTP, Host: "qdrant"}},
			wantTag: vectordb.ProviderQdrant,
		},
		{
			name:    "chroma http",
			profile: Profile{Provider: vectordb.ProviderChroma, Config: ConnectionConfig{Type: TypeHTTP, Host: "chroma"}},
			wantTag: vectordb.ProviderChroma,
		},
		{
			name:    "lancedb",
			profile: Profile{Provider: vectordb.ProviderLanceDB, Config: ConnectionConfig{Path: t.TempDir()}},
			wantTag: vectordb.ProviderLanceDB,
		},
		{
			name:    "milvus",
			profile: Profile{Provider: vectordb.ProviderMilvus, Config: ConnectionConfig{Type: TypeHTTP}},
			wantTag: vectordb.ProviderMilvus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := newFactory().Create(tt.profile)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, conn.ProviderTag())
			if tt.wantMode != "" {
				assert.Equal(t, tt.wantMode, conn.ConnectionInfo().Mode)
			}
			assert.Equal(t, vectordb.StateUnconnected, conn.State())
		})
	}
}

func TestFactory_LocalTypeErrors(t *testing.T) {
	_, err := newFactory().Create(Profile{Provider: vectordb.ProviderChroma, Config: ConnectionConfig{Type: TypePersistent}})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = newFactory().Create(Profile{Provider: vectordb.ProviderQdrant, Config: ConnectionConfig{Type: "grpc"}})
	assert.ErrorIs(t, err, ErrUnsupportedConnectionType)

	_, err = newFactory().Create(Profile{Provider: vectordb.ProviderMilvus, Config: ConnectionConfig{Type: TypePersistent}})
	assert.ErrorIs(t, err, ErrUnsupportedConnectionType)
}

func TestFactory_LinksMilvusAndQdrantClients(t *testing.T) {
	// Both clients register "common.proto"; reaching this test at all means
	// package initialization survived the duplicate.
	assert.NotEqual(t, "panic", protoreg.ConflictPolicy())
	_, err := protoregistry.GlobalFiles.FindFileByPath("common.proto")
	assert.NoError(t, err)

	for _, p := range []Profile{
		{Provider: vectordb.ProviderMilvus, Config: ConnectionConfig{Type: TypeHTTP}},
		{Provider: vectordb.ProviderQdrant, Config: ConnectionConfig{Type: TypeHTTP, Host: "qdrant"}},
	} {
		conn, err := newFactory().Create(p)
		require.NoError(t, err)
		assert.Equal(t, p.Provider, conn.ProviderTag())
	}
}
