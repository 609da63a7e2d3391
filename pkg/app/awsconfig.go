package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func (a *App) initS3Client() error {
	cfg, err := a.getAwsConfig()
	if err != nil {
		return err
	}
	a.awsS3Client = s3.NewFromConfig(cfg)
	return nil
}

// getAwsConfig builds the aws.Config from the first configured credential
// source: custom endpoint with static keys (minio and friends), an SSO
// profile, or the default chain.
func (a *App) getAwsConfig() (aws.Config, error) {
	if a.cfg.S3endpoint != "" {
		a.log.Debug("Using custom S3 endpoint", slog.String("endpoint", a.cfg.S3endpoint))
		staticResolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               a.cfg.S3endpoint,
				SigningRegion:     a.cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		})
		return aws.Config{
			Region:           a.cfg.S3Region,
			Credentials:      credentials.NewStaticCredentialsProvider(a.cfg.S3accessKey, a.cfg.S3secretKey, ""),
			EndpointResolver: staticResolver,
		}, nil
	}

	if a.cfg.SsoAwsProfile != "" {
		a.log.Debug("Using SSO profile", slog.String("profile", a.cfg.SsoAwsProfile))
		cfg, err := awsconfig.LoadDefaultConfig(
			context.TODO(),
			awsconfig.WithSharedConfigProfile(a.cfg.SsoAwsProfile),
		)
		if err != nil {
			return cfg, fmt.Errorf("error loading SSO profile: %w", err)
		}
		return cfg, nil
	}

	if a.cfg.S3accessKey == "" && a.cfg.S3secretKey == "" {
		cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(a.cfg.S3Region))
		if err != nil {
			return cfg, fmt.Errorf("error loading default config: %w", err)
		}
		return cfg, nil
	}

	return aws.Config{}, errors.New("no method to initialize aws.Config")
}
