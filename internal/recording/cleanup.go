package recording

import "os"

// removeFile deletes path, treating a missing file as success.
func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
