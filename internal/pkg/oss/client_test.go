package oss

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talktojesus/api_server/config"
)

func TestAudioObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	key := AudioObjectKey("user-1", at)

	assert.True(t, strings.HasPrefix(key, "audio/user-1/20240309/"))
	assert.True(t, strings.HasSuffix(key, ".mp3"))
	assert.NotEqual(t, key, AudioObjectKey("user-1", at))
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(&config.OSSConfig{}))
	assert.True(t, Enabled(&config.OSSConfig{
		Endpoint:    "oss-ap-south-1.aliyuncs.com",
		BucketName:  "voices",
		AccessKeyID: "key",
	}))
}

func TestGetURL_CDN(t *testing.T) {
	c := &Client{cdnDomain: "cdn.example.com", bucketName: "voices"}

	assert.Equal(t, "https://cdn.example.com/audio/a.mp3", c.GetURL("audio/a.mp3"))
}
