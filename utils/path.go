package utils

import (
	"os"
	"path/filepath"
)

func FileExist(path string) bool {
	_, err := os.Lstat(path)
	return !os.IsNotExist(err)
}

// GetFilePath resolves a config file name. An absolute path is returned as is; otherwise the
// directory of the executable is tried first, then the working directory.
// If nothing is found, fileName is returned unchanged so the caller's open error names it.
func GetFilePath(fileName string) string {
	if fileName == "" || filepath.IsAbs(fileName) {
		return fileName
	}

	if execFile, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(execFile), fileName)
		if FileExist(p) {
			return p
		}
	}

	if workingDir, err := os.Getwd(); err == nil {
		p := filepath.Join(workingDir, fileName)
		if FileExist(p) {
			return p
		}
	}

	return fileName
}
