package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeOptions Pinecone数据面配置
type PineconeOptions struct {
	APIKey    string
	Host      string
	Namespace string
	Dimension int
}

// pineconeIndex 向量存储用到的IndexConnection方法
type pineconeIndex interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	DeleteAllVectorsInNamespace(ctx context.Context) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

type pineconeVectorStore struct {
	index     pineconeIndex
	dimension int
}

const (
	// 每批最多写入的向量数
	pineconeUpsertBatch = 100
	// 每次按ID删除的上限
	pineconeDeleteBatch = 1000
)

// NewPineconeVectorStore 创建Pinecone向量索引，命名空间固定在连接上
func NewPineconeVectorStore(opts PineconeOptions) (VectorStore, error) {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		return nil, fmt.Errorf("pinecone index host is not configured")
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api key is not configured")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	idx, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: opts.Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect pinecone index: %w", err)
	}
	return newPineconeVectorStore(idx, opts.Dimension), nil
}

func newPineconeVectorStore(index pineconeIndex, dimension int) *pineconeVectorStore {
	return &pineconeVectorStore{index: index, dimension: dimension}
}

// Upsert 分批写入，某批失败时删除本次已写入的批次
func (s *pineconeVectorStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	written := make([]string, 0, len(entries))
	for start := 0; start < len(entries); start += pineconeUpsertBatch {
		end := start + pineconeUpsertBatch
		if end > len(entries) {
			end = len(entries)
		}

		vectors := make([]*pinecone.Vector, 0, end-start)
		for _, e := range entries[start:end] {
			v, err := toPineconeVector(e)
			if err != nil {
				return indexError("upsert", s.rollback(ctx, written, err))
			}
			vectors = append(vectors, v)
		}

		if _, err := s.index.UpsertVectors(ctx, vectors); err != nil {
			return indexError("upsert", s.rollback(ctx, written, err))
		}
		for _, e := range entries[start:end] {
			written = append(written, e.ID)
		}
	}
	return nil
}

func (s *pineconeVectorStore) rollback(ctx context.Context, written []string, cause error) error {
	if len(written) == 0 {
		return cause
	}
	if err := s.deleteIDs(ctx, written); err != nil {
		return fmt.Errorf("%w (rollback of %d vectors failed: %v)", cause, len(written), err)
	}
	return cause
}

func (s *pineconeVectorStore) deleteIDs(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += pineconeDeleteBatch {
		end := start + pineconeDeleteBatch
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.index.DeleteVectorsById(ctx, ids[start:end]); err != nil && !isGRPCNotFound(err) {
			return err
		}
	}
	return nil
}

func toPineconeVector(e VectorEntry) (*pinecone.Vector, error) {
	v := &pinecone.Vector{Id: e.ID, Values: e.Vector}
	if len(e.Metadata) > 0 {
		meta, err := structpb.NewStruct(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", e.ID, err)
		}
		v.Metadata = meta
	}
	return v, nil
}

func (s *pineconeVectorStore) DeleteOne(ctx context.Context, id string) error {
	return indexError("delete", s.deleteIDs(ctx, []string{id}))
}

func (s *pineconeVectorStore) DeleteAll(ctx context.Context) error {
	err := s.index.DeleteAllVectorsInNamespace(ctx)
	// 空命名空间返回NotFound
	if isGRPCNotFound(err) {
		return nil
	}
	return indexError("delete all", err)
}

func (s *pineconeVectorStore) Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	resp, err := s.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          req.Vector,
		TopK:            uint32(req.TopK),
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil {
		return nil, indexError("query", err)
	}

	matches := make([]SearchMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := SearchMatch{ID: m.Vector.Id, Score: float64(m.Score)}
		if m.Vector.Metadata != nil {
			match.Metadata = Metadata(m.Vector.Metadata.AsMap())
		}
		matches = append(matches, match)
	}
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

func (s *pineconeVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	resp, err := s.index.DescribeIndexStats(ctx)
	if err != nil {
		return IndexStats{}, indexError("stats", err)
	}
	return IndexStats{TotalVectors: int64(resp.TotalVectorCount), Dimension: int(resp.Dimension)}, nil
}

func (s *pineconeVectorStore) Ready() bool {
	return s.index != nil
}

// Close 关闭gRPC连接
func (s *pineconeVectorStore) Close() error {
	return s.index.Close()
}

func isGRPCNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}
