package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// FirebaseStore keeps images in a Firebase Storage bucket and hands out
// token download URLs, so the bucket itself can stay private.
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewFirebaseStore(ctx context.Context, credentialsJSON, bucketName string) (*FirebaseStore, error) {
	opt := option.WithCredentialsJSON([]byte(credentialsJSON))
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("firebase storage bucket: %w", err)
	}
	return &FirebaseStore{bucket: bucket, bucketName: bucketName}, nil
}

func (s *FirebaseStore) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	path := productsDir + "/" + name
	token := uuid.NewString()

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("upload image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return s.downloadURL(path, token), nil
}

func (s *FirebaseStore) Delete(ctx context.Context, rawURL string) error {
	path, ok := s.objectPath(rawURL)
	if !ok {
		return nil
	}
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *FirebaseStore) downloadURL(path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.bucketName, url.PathEscape(path), token)
}

func (s *FirebaseStore) objectPath(rawURL string) (string, bool) {
	prefix := fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/", s.bucketName)
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	escaped, _, _ := strings.Cut(strings.TrimPrefix(rawURL, prefix), "?")
	path, err := url.PathUnescape(escaped)
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}
