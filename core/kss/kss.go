// Package kss stores files outside of the database. There are currently two
// drivers: a local file system and AWS S3.
package kss

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Driver defines the interface for the KSS service
type Driver interface {
	// Upload stores the content of r under key and returns where it can be found
	Upload(ctx context.Context, key string, r io.Reader) (location string, err error)
	// List returns all keys starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) error
}

// DriverType represents the different type of KSS Drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation of the KSS service
const DriverTypeLocal DriverType = "Local"

// DriverTypeAWSS3 is the AWS S3 implementation of the KSS service
const DriverTypeAWSS3 DriverType = "AWSS3"

// Configuration contains the configuration for the KSS service
type Configuration struct {
	DriverType         DriverType
	LocalConfiguration *LocalConfiguration
	S3Configuration    *S3Configuration
}

// LocalConfiguration contains the configuration for the local filesystem KSS service
type LocalConfiguration struct {
	BasePath string
}

// S3Configuration contains the configuration for the S3 KSS service
type S3Configuration struct {
	AWSRegion     string
	AWSBucketName string
	AccessID      string
	AccessKey     string
	KeyPrefix     string
	// Endpoint overrides the AWS endpoint, e.g. for minio or localstack
	Endpoint string
}

// New returns the driver selected by config
func New(ctx context.Context, config Configuration) (Driver, error) {
	switch config.DriverType {
	case DriverTypeLocal:
		if config.LocalConfiguration == nil {
			return nil, fmt.Errorf("kss expecting a configuration for local KSS, but got nothing")
		}
		return NewLocalFilesystem(*config.LocalConfiguration)
	case DriverTypeAWSS3:
		if config.S3Configuration == nil {
			return nil, fmt.Errorf("kss expecting a configuration for S3 KSS, but got nothing")
		}
		return NewS3(ctx, *config.S3Configuration)
	}
	return nil, fmt.Errorf("unknown kss driver type '%s'", config.DriverType)
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("invalid key '%s'", key)
	}
	return nil
}
