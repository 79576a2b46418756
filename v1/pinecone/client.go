package pinecone

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// controlPlane is the index management surface of *pinecone.Client.
type controlPlane interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
	DeleteIndex(ctx context.Context, name string) error

	// openIndex dials the data plane of the index served at host.
	openIndex(host string) (dataPlane, error)
}

// dataPlane is the subset of *pinecone.IndexConnection the adapter uses.
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

type sdkControlPlane struct {
	*pinecone.Client
	namespace string
}

func (s sdkControlPlane) openIndex(host string) (dataPlane, error) {
	conn, err := s.Index(pinecone.NewIndexConnParams{Host: host, Namespace: s.namespace})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// dialSDK builds the SDK client. Every data connection it opens is scoped
// to the configured namespace.
func dialSDK(cfg Config) (controlPlane, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:     cfg.APIKey,
		Host:       cfg.ControllerURL,
		RestClient: &http.Client{Timeout: cfg.Timeout},
		SourceTag:  "vectorinspector",
	})
	if err != nil {
		return nil, err
	}
	return sdkControlPlane{Client: client, namespace: cfg.Namespace}, nil
}

// translateError maps SDK failures onto the vectordb sentinels. Data plane
// calls fail with gRPC statuses; the control plane reports the HTTP status
// in the error text.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch status.Code(err) {
	case codes.NotFound:
		sentinel = vectordb.ErrCollectionNotFound
	case codes.AlreadyExists:
		sentinel = vectordb.ErrCollectionExists
	case codes.InvalidArgument:
		sentinel = vectordb.ErrInvalidArgument
	case codes.Unknown:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "not found"), strings.Contains(msg, "not_found"):
			sentinel = vectordb.ErrCollectionNotFound
		case strings.Contains(msg, "already exists"), strings.Contains(msg, "already_exists"),
			strings.Contains(msg, "409 conflict"):
			sentinel = vectordb.ErrCollectionExists
		case strings.Contains(msg, "400 bad request"), strings.Contains(msg, "422 unprocessable"),
			strings.Contains(msg, "invalid_argument"):
			sentinel = vectordb.ErrInvalidArgument
		}
	}
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return &sdkError{err: err, sentinel: sentinel}
}

type sdkError struct {
	err      error
	sentinel error
}

func (e *sdkError) Error() string { return "pinecone: " + e.err.Error() }

func (e *sdkError) Unwrap() []error { return []error{e.err, e.sentinel} }
