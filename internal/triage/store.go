package triage

import "context"

// Store is the persistence interface for mother and CHW records.
type Store interface {
	GetMother(ctx context.Context, id string) (*Mother, bool, error)
	ListMothers(ctx context.Context) ([]*Mother, error)
	PutMother(ctx context.Context, m *Mother) error

	GetCHW(ctx context.Context, id string) (*CHW, bool, error)
	ListCHWs(ctx context.Context) ([]*CHW, error)
	PutCHW(ctx context.Context, c *CHW) error
}
