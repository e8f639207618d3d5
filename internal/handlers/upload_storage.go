package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"pistore/internal/store"
)

var uploadFolders = []string{folderProducts, folderAvatars, folderIcons}

// uploadBlobName turns a public URL, a /files/ path or a bare name into a
// blob name. Only names inside an upload folder are accepted.
func uploadBlobName(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
		trimmed = parsed.Path
	}
	if idx := strings.Index(trimmed, filesRoute); idx >= 0 {
		trimmed = trimmed[idx+len(filesRoute):]
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	for _, folder := range uploadFolders {
		if strings.HasPrefix(cleanRel, folder+"/") && len(cleanRel) > len(folder)+1 {
			return cleanRel, true
		}
	}
	return "", false
}

// safeDeleteUpload removes an uploaded blob. Missing blobs are not an error.
func safeDeleteUpload(ctx context.Context, blob store.Blob, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}

	name, ok := uploadBlobName(ref)
	if !ok {
		return fmt.Errorf("refusing to delete non-upload path: %s", ref)
	}

	if err := blob.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
