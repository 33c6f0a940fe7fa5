package domain

import "errors"

var (
	// ErrMissingInput indicates a required pipeline artifact (audio, transcript, chunk file) does not exist.
	ErrMissingInput = errors.New("missing input")

	// ErrNoChunks indicates that no usable chunks survived filtering, so there is nothing to index.
	ErrNoChunks = errors.New("no usable chunks")

	// ErrCorruptIndex indicates the persisted index cannot be read or disagrees with the chunk store.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrUnsupportedAudio indicates an imported recording is not in an accepted format.
	ErrUnsupportedAudio = errors.New("unsupported audio format")

	// ErrQuota indicates the generative provider (or the local limiter) refused the request for quota reasons.
	ErrQuota = errors.New("provider quota exhausted")

	// ErrUnavailable indicates a transient generative provider failure.
	ErrUnavailable = errors.New("provider unavailable")
)
