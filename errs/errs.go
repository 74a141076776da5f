package errs

import (
	"errors"
)

var (
	// ErrNotVideoLink indicates the supplied URL is not a recognized video link.
	ErrNotVideoLink = errors.New("not a recognized video link")
	// ErrNoFormatFound indicates that no client persona yielded a usable format.
	ErrNoFormatFound = errors.New("no downloadable format found")
	// ErrAcquisitionFailed indicates that every stream acquisition strategy failed.
	ErrAcquisitionFailed = errors.New("could not obtain a media stream")
	// ErrVideoUnavailable indicates that the requested video cannot be accessed.
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrPrivate indicates that the video is private and cannot be downloaded.
	ErrPrivate = errors.New("video is private")
	// ErrAgeRestricted indicates that the video has an age restriction.
	ErrAgeRestricted = errors.New("age restricted")
	// ErrGeoBlocked indicates the video is not available in the current region.
	ErrGeoBlocked = errors.New("geo blocked")
	// ErrRateLimited indicates throttling or rate limiting by the remote service.
	ErrRateLimited = errors.New("rate limited")
	// ErrCipherFailed indicates failure during signature deciphering.
	ErrCipherFailed = errors.New("cipher failed")
)
