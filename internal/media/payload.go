package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PayloadStore persists asset binaries on the host filesystem, beneath
// a configured root directory. The database rows only ever reference
// payloads by filename; resolving that name to a path is this store's
// responsibility.
type PayloadStore struct {
	rootDirPath string
}

// NewPayloadStore validates that the provided root path is a usable
// directory, creating it if it's missing. If the path provided points
// to an existing FILE, an error is returned.
func NewPayloadStore(rootDirPath string) (*PayloadStore, error) {
	if info, err := os.Stat(rootDirPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("media path '%s' is not a directory", rootDirPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(rootDirPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("media path '%s' could not be created: %s", rootDirPath, err.Error())
		}
	} else {
		return nil, fmt.Errorf("media path '%s' could not be accessed: %s", rootDirPath, err.Error())
	}

	return &PayloadStore{rootDirPath: rootDirPath}, nil
}

// Save streams the payloads content to disk under the store's root.
// The write goes to a temporary file first and is renamed in to place so
// a failed download never leaves a partial payload behind.
func (store *PayloadStore) Save(payload *Payload) error {
	destPath := store.ResolvePath(payload.FileName)

	tmp, err := os.CreateTemp(store.rootDirPath, ".payload-*")
	if err != nil {
		return fmt.Errorf("failed to stage payload '%s': %s", payload.FileName, err.Error())
	}

	if _, err := io.Copy(tmp, payload.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write payload '%s': %s", payload.FileName, err.Error())
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalise payload '%s': %s", payload.FileName, err.Error())
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move payload '%s' in to place: %s", payload.FileName, err.Error())
	}

	return nil
}

// Remove deletes the payload with the given filename. A missing payload
// is not an error.
func (store *PayloadStore) Remove(fileName string) error {
	err := os.Remove(store.ResolvePath(fileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

func (store *PayloadStore) ResolvePath(fileName string) string {
	return filepath.Join(store.rootDirPath, filepath.Base(fileName))
}
