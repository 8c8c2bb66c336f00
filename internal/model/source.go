package model

// Path represents a file system path.
type Path string

// File is a snapshot of a file on disk, used to report backups and verify
// restores.
type File struct {
	Path Path
	Hash string
	Size int64
}
