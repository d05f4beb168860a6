package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownDataset is returned when a dataset key has no provider query
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrProviderFailure is returned when the remote data provider request fails
	ErrProviderFailure = errors.New("data provider request failed")

	// ErrProviderNotConfigured is returned when provider credentials are missing
	ErrProviderNotConfigured = errors.New("data provider not configured")

	// ErrRefreshFailed is returned when one or more datasets could not be refreshed
	ErrRefreshFailed = errors.New("dataset refresh failed")

	// ErrEmptyCompletion is returned when the language model answers with no text
	ErrEmptyCompletion = errors.New("empty completion from language model")

	// ErrStoreUnavailable is returned when the dataset store cannot be reached
	ErrStoreUnavailable = errors.New("dataset store unavailable")
)
