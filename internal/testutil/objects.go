package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/cbt-marketplace/apiserver/internal/storage"
)

// Objects is an in-memory object store.
type Objects struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

type storedObject struct {
	data        []byte
	contentType string
}

func NewObjects() *Objects {
	return &Objects{objects: map[string]storedObject{}}
}

func (o *Objects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (o *Objects) Get(_ context.Context, key string) (storage.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

// Keys returns the stored keys.
func (o *Objects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for key := range o.objects {
		keys = append(keys, key)
	}
	return keys
}

// PNG is a minimal valid PNG header, enough for content sniffing.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
