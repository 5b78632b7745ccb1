// Package blob reads handwritten ink images from S3-compatible object
// storage and prepares them for captioning.
package blob
