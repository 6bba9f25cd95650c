// Package s3 provides a client for AWS S3 and S3 compatible object stores.
//
// It is scoped to one bucket and used to keep cluster directories outside
// the machine that ran the install, so a later clean can run elsewhere.
package s3
