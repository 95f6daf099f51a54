package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/homesense/core/kss"
)

const exportPrefix = "measures-"

type exportOptions struct {
	dir        string
	bucket     string
	region     string
	endpoint   string
	keyPrefix  string
	accessID   string
	accessKey  string
	keep       int
	timeFormat string
}

func (e *exportOptions) configuration() (kss.Configuration, error) {
	switch {
	case e.dir != "" && e.bucket != "":
		return kss.Configuration{}, fmt.Errorf("--dir and --s3-bucket are mutually exclusive")
	case e.bucket != "":
		return kss.Configuration{
			DriverType: kss.DriverTypeAWSS3,
			S3Configuration: &kss.S3Configuration{
				AWSRegion:     e.region,
				AWSBucketName: e.bucket,
				AccessID:      e.accessID,
				AccessKey:     e.accessKey,
				KeyPrefix:     e.keyPrefix,
				Endpoint:      e.endpoint,
			},
		}, nil
	}
	dir := e.dir
	if dir == "" {
		dir = "."
	}
	return kss.Configuration{
		DriverType:         kss.DriverTypeLocal,
		LocalConfiguration: &kss.LocalConfiguration{BasePath: dir},
	}, nil
}

func newExportCmd(o *options) *cobra.Command {
	e := &exportOptions{timeFormat: "20060102-150405"}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all measures as xlsx workbook to a directory or an S3 bucket",
		Long: `Export all measures as xlsx workbook, one sheet per measure type. The workbook is
stored as measures-<timestamp>.xlsx in a local directory (--dir) or in an S3 bucket
(--s3-bucket). With --keep, only the newest exports are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			config, err := e.configuration()
			if err != nil {
				return err
			}
			driver, err := kss.New(ctx, config)
			if err != nil {
				return err
			}

			data, err := o.client().Export(ctx)
			if err != nil {
				return fmt.Errorf("cannot export measures: %w", err)
			}
			key := exportPrefix + time.Now().UTC().Format(e.timeFormat) + ".xlsx"
			location, err := driver.Upload(ctx, key, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("cannot store export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported to", location)

			if e.keep <= 0 {
				return nil
			}
			keys, err := driver.List(ctx, exportPrefix)
			if err != nil {
				return fmt.Errorf("cannot list exports: %w", err)
			}
			// keys are sorted, and so are the timestamps in them
			for len(keys) > e.keep {
				if err := driver.Delete(ctx, keys[0]); err != nil {
					return fmt.Errorf("cannot delete old export %s: %w", keys[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", keys[0])
				keys = keys[1:]
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&e.dir, "dir", "", "directory to store the export in (default is the working directory)")
	cmd.Flags().StringVar(&e.bucket, "s3-bucket", "", "S3 bucket to store the export in")
	cmd.Flags().StringVar(&e.region, "s3-region", "eu-central-1", "AWS region of the bucket")
	cmd.Flags().StringVar(&e.endpoint, "s3-endpoint", "", "S3 endpoint, e.g. of a minio server")
	cmd.Flags().StringVar(&e.keyPrefix, "s3-prefix", "", "key prefix inside the bucket")
	cmd.Flags().StringVar(&e.accessID, "s3-access-id", "", "access key id, the default AWS credential chain is used if empty")
	cmd.Flags().StringVar(&e.accessKey, "s3-access-key", "", "secret access key")
	cmd.Flags().IntVar(&e.keep, "keep", 0, "number of exports to keep, 0 keeps all")
	return cmd
}
