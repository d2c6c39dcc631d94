package oss

import (
	"bytes"
	"fmt"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"

	"github.com/talktojesus/api_server/config"
)

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// Enabled reports whether cfg carries enough to build a client.
func Enabled(cfg *config.OSSConfig) bool {
	return cfg.Endpoint != "" && cfg.BucketName != "" && cfg.AccessKeyID != ""
}

// UploadAudio stores synthesized speech for userID and returns its URL.
func (c *Client) UploadAudio(userID string, data []byte, contentType string) (string, error) {
	objectKey := AudioObjectKey(userID, time.Now())

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// AudioObjectKey audio/<user>/<yyyymmdd>/<uuid>.mp3
func AudioObjectKey(userID string, at time.Time) string {
	return fmt.Sprintf("audio/%s/%s/%s.mp3", userID, at.UTC().Format("20060102"), uuid.NewString())
}

func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, c.client.Config.Endpoint, objectKey)
}
