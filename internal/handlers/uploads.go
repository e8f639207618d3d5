package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pistore/internal/middleware"
	"pistore/internal/store"
)

const (
	maxImageSize = 5 << 20

	folderProducts = "products"
	folderAvatars  = "avatars"
	folderIcons    = "icons"

	filesRoute = "/files/"
)

var (
	allowedImageExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	}

	errImageTooLarge = errors.New("image file too large (max 5MB)")
)

// uploadedImage is a validated upload waiting to be written.
type uploadedImage struct {
	Extension   string
	ContentType string
	Body        io.Reader
	close       func() error
}

func (u uploadedImage) Close() error {
	if u.close == nil {
		return nil
	}
	return u.close()
}

func imageExtension(filename string) (string, string, error) {
	extension := strings.ToLower(filepath.Ext(filename))
	if extension == "" {
		return "", "", fmt.Errorf("image file extension is required")
	}
	contentType, ok := allowedImageExtensions[extension]
	if !ok {
		return "", "", fmt.Errorf("unsupported image type: %s", extension)
	}
	return extension, contentType, nil
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	for ext, known := range allowedImageExtensions {
		if known == mediaType && ext != ".jpeg" {
			return ext
		}
	}
	return ""
}

// readUpload accepts a multipart "file" (or "image") field, or a raw body
// whose name comes from ?filename or the Content-Type.
func readUpload(c *gin.Context) (uploadedImage, error) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		file, err := c.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			file, err = c.FormFile("image")
		}
		if err != nil {
			return uploadedImage{}, fmt.Errorf("file is required")
		}
		return openMultipartImage(file)
	}

	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		if ext := extensionForContentType(contentType); ext != "" {
			filename = "upload" + ext
		}
	}
	extension, mediaType, err := imageExtension(filename)
	if err != nil {
		return uploadedImage{}, err
	}
	if c.Request.ContentLength > maxImageSize {
		return uploadedImage{}, errImageTooLarge
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)
	return uploadedImage{Extension: extension, ContentType: mediaType, Body: body, close: body.Close}, nil
}

func openMultipartImage(file *multipart.FileHeader) (uploadedImage, error) {
	extension, contentType, err := imageExtension(file.Filename)
	if err != nil {
		return uploadedImage{}, err
	}
	if file.Size > maxImageSize {
		return uploadedImage{}, errImageTooLarge
	}

	in, err := file.Open()
	if err != nil {
		log.Printf("[UPLOAD] failed to open upload %s: %v", file.Filename, err)
		return uploadedImage{}, err
	}
	return uploadedImage{Extension: extension, ContentType: contentType, Body: in, close: in.Close}, nil
}

// saveImage writes the upload under folder and returns the blob name.
func saveImage(ctx context.Context, blob store.Blob, folder string, image uploadedImage) (string, error) {
	defer image.Close()

	name := path.Join(folder, uuid.NewString()+image.Extension)
	if err := blob.Put(ctx, name, image.ContentType, image.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", errImageTooLarge
		}
		log.Printf("[UPLOAD] failed to store %s: %v", name, err)
		return "", err
	}

	log.Printf("[UPLOAD] stored %s (%s)", name, image.ContentType)
	return name, nil
}

func publicFileURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + filesRoute + name
}

func handleUpload(c *gin.Context, route string, blob store.Blob, folder, baseURL string) (string, bool) {
	image, err := readUpload(c)
	if errors.Is(err, errImageTooLarge) {
		respondWithError(c, http.StatusRequestEntityTooLarge, route, err.Error())
		return "", false
	}
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, err.Error())
		return "", false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	name, err := saveImage(ctx, blob, folder, image)
	if errors.Is(err, errImageTooLarge) {
		respondWithError(c, http.StatusRequestEntityTooLarge, route, err.Error())
		return "", false
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "upload failed")
		return "", false
	}
	return publicFileURL(baseURL, name), true
}

func UploadImage(blob store.Blob, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /upload"
		defer handlePanic(c, route)

		url, ok := handleUpload(c, route, blob, folderProducts, baseURL)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "url": url})
	}
}

func UploadIcon(blob store.Blob, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /upload-icon"
		defer handlePanic(c, route)

		url, ok := handleUpload(c, route, blob, folderIcons, baseURL)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "url": url})
	}
}

// UploadAvatar stores the image and records it as the session user's avatar.
func UploadAvatar(blob store.Blob, profiles *store.ProfileStore, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /uploadAvatar"
		defer handlePanic(c, route)

		session, ok := middleware.SessionFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		url, ok := handleUpload(c, route, blob, folderAvatars, baseURL)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		previous, err := profiles.Avatar(ctx, session.Username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Println("[UPLOAD] [WARN] previous avatar lookup failed:", err)
		}
		if err := profiles.SaveAvatar(ctx, session.Username, url); err != nil {
			respondStoreError(c, route, err)
			return
		}
		if previous != "" && previous != url {
			if err := safeDeleteUpload(ctx, blob, previous); err != nil {
				log.Println("[UPLOAD] [WARN] previous avatar not removed:", err)
			}
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "url": url})
	}
}

// ServeFile streams a stored blob back to the client.
func ServeFile(blob store.Blob) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /files/*name"
		defer handlePanic(c, route)

		name, ok := uploadBlobName(c.Param("name"))
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "file not found")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		body, info, err := blob.Open(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "file not found")
			return
		}
		if err != nil {
			log.Printf("[UPLOAD] failed to open %s: %v", name, err)
			respondWithError(c, http.StatusInternalServerError, route, "file read failed")
			return
		}
		defer body.Close()

		contentType := info.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		// Uploads are untrusted and share the session cookie's origin.
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Security-Policy", "default-src 'none'; img-src 'self'; sandbox")
		c.Header("Cache-Control", "public, max-age=86400")
		if !info.UploadedAt.IsZero() {
			c.Header("Last-Modified", info.UploadedAt.UTC().Format(http.TimeFormat))
		}
		c.DataFromReader(http.StatusOK, info.Size, contentType, body, nil)
	}
}
