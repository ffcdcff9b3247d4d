// Package s3 implements driven.Feed over packages stored in an S3 bucket
// (or any S3-compatible store such as MinIO).
//
// Object layout:
//
//	<prefix>/<id>/<version>/<id>.<version>.nupkg
//
// Feed URIs take the form s3://bucket/prefix. The optional query parameters
// region and endpoint select the region and a custom endpoint.
package s3
