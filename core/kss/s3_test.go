package kss_test

import (
	"context"
	"testing"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/core/kss"
)

type s3Environment struct {
	AccessID  string `env:"KSS_S3_ACCESS_ID,optional"`
	AccessKey string `env:"KSS_S3_ACCESS_KEY,optional"`
	Bucket    string `env:"KSS_S3_BUCKET,default=kss-test"`
	Region    string `env:"KSS_S3_REGION,default=eu-central-1"`
	Endpoint  string `env:"KSS_S3_ENDPOINT,optional"`
}

func Test_S3(t *testing.T) {
	var env s3Environment
	if err := envdecode.Decode(&env); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		t.Fatal(err)
	}
	if testing.Short() || env.AccessID == "" {
		t.Skip("S3 tests require KSS_S3_ACCESS_ID and KSS_S3_ACCESS_KEY")
	}

	drv, err := kss.NewS3(context.Background(), kss.S3Configuration{
		AccessID:      env.AccessID,
		AccessKey:     env.AccessKey,
		AWSBucketName: env.Bucket,
		AWSRegion:     env.Region,
		Endpoint:      env.Endpoint,
		KeyPrefix:     t.Name() + time.Now().Format("2006-01-0215.04.05.9.00") + "/",
	})
	require.NoError(t, err)
	testDriver(t, drv)
}
