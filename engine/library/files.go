package library

import "os"

// Touch creates an empty file at the given path if nothing exists there yet.
func Touch(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			LogCLI(err.Error(), 0)
		}
		f.Close()
	}
}
