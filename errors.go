package inkwell

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrFetchFailed is the single failure reported by the listing path.
	ErrFetchFailed = errors.New("failed to fetch posts")

	// ErrUnauthenticated is returned when an operation needs a signed-in caller.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the caller may not touch the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidPost is returned for post payloads that cannot be stored.
	ErrInvalidPost = errors.New("invalid post")

	// ErrSlugTaken is returned when another post already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
)
