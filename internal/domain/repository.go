package domain

import (
	"context"
)

// DatasetStore holds the latest copy of every dataset. GetDataset never
// fails: a miss or a backend error yields an empty dataset. A stored dataset
// is replaced as a whole, so a row slice obtained from GetDataset is a
// stable snapshot.
type DatasetStore interface {
	GetDataset(ctx context.Context, key string) Dataset
	PutDataset(ctx context.Context, key string, dataset Dataset) error
	Keys(ctx context.Context) []string
}

// DatasetProvider fetches a dataset from the remote ERP
type DatasetProvider interface {
	FetchDataset(ctx context.Context, key string) (Dataset, error)
}

// DatasetRefresher reloads every known dataset into the store
type DatasetRefresher interface {
	RefreshDatasets(ctx context.Context) error
}

// Summarizer produces a short natural-language answer for a prompt
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}
