// Package storage adapts the Cloudinary upload API for media persistence.
//
// Objects are uploaded under a folder namespaced by media kind
// (<namespace>/images, <namespace>/videos, <namespace>/audios) and addressed
// for deletion by the public id embedded in their delivery URL. Cloudinary
// does not model audio as a first-class resource type, so audio objects live
// in the provider's "video" resource category; that quirk must be mirrored
// when computing delete requests or the cascade silently misses them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"

	"github.com/trueai/go-detect-backend/internal/domain"
)

// DefaultFolderPrefix namespaces all uploads belonging to this application.
const DefaultFolderPrefix = "TrueAI"

// publicIDRE captures the canonical upload-path segment of a Cloudinary
// delivery URL: everything between "upload/" (optionally followed by a
// version token like v1712345678/) and the final extension.
var publicIDRE = regexp.MustCompile(`upload/(?:v\d+/)?(.+)\.[a-zA-Z0-9]+$`)

// uploadAPI is the slice of the Cloudinary upload service this adapter uses.
// *uploader.API satisfies it; tests substitute a fake.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, destroyParams uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Client uploads and deletes media objects in a Cloudinary account.
// It is configured once at startup and safe for concurrent use.
type Client struct {
	api    uploadAPI
	prefix string
}

// New builds a Client from Cloudinary credentials.
func New(cloudName, apiKey, apiSecret string) (*Client, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	return &Client{api: &cld.Upload, prefix: DefaultFolderPrefix}, nil
}

// Folder returns the type-specific upload folder for a media kind.
func (c *Client) Folder(kind domain.MediaKind) string {
	switch kind {
	case domain.MediaVideo:
		return c.prefix + "/videos"
	case domain.MediaAudio:
		return c.prefix + "/audios"
	default:
		return c.prefix + "/images"
	}
}

// ResourceType maps a media kind to the Cloudinary resource type used on
// upload. Audio files use "video" because Cloudinary has no audio type.
func ResourceType(kind domain.MediaKind) string {
	if kind == domain.MediaImage {
		return "image"
	}
	return "video"
}

// Upload stores the file at path under the kind-specific folder and returns
// its durable, publicly resolvable URL.
func (c *Client) Upload(ctx context.Context, path string, kind domain.MediaKind) (string, error) {
	res, err := c.api.Upload(ctx, path, uploader.UploadParams{
		Folder:       c.Folder(kind),
		ResourceType: ResourceType(kind),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure URL in response")
	}
	return res.SecureURL, nil
}

// Destroy deletes the object addressed by publicID within resourceType.
// Failures are reported to the caller, which logs and continues; a deletion
// cascade must never abort because one object could not be removed.
func (c *Client) Destroy(ctx context.Context, publicID, resourceType string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy %s: result %q", publicID, res.Result)
	}
	log.Info().Str("public_id", publicID).Str("result", res.Result).Msg("deleted storage object")
	return nil
}

// ExtractPublicID derives the storage object identifier from a delivery URL.
// It is the exact left-inverse of the upload naming convention: a URL
// produced by uploading object X into folder F yields "F/X". The second
// return value is false when the URL does not match the canonical shape;
// callers treat that as "nothing to delete", not an error.
func ExtractPublicID(url string) (string, bool) {
	m := publicIDRE.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
