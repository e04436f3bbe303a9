package couchbase

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
)

// ConnectionManager handles Couchbase cluster and bucket connections
type ConnectionManager struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	bucketName string
}

// NewConnectionManager connects to the cluster and waits for the bucket
func NewConnectionManager(url, username, password, bucketName string) (*ConnectionManager, error) {
	connectionString := normalizeConnectionString(url)

	cluster, err := gocb.Connect(connectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: username,
			Password: password,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout: 30 * time.Second,
			KVTimeout:      5 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	if err := cluster.WaitUntilReady(30*time.Second, nil); err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("failed to wait for cluster: %w", err)
	}

	// The bucket must already exist
	bucket := cluster.Bucket(bucketName)
	if err := bucket.WaitUntilReady(10*time.Second, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue},
	}); err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("bucket %q is not accessible: %w", bucketName, err)
	}

	return &ConnectionManager{
		cluster:    cluster,
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

// normalizeConnectionString maps http:// and bare hosts onto couchbase://
func normalizeConnectionString(url string) string {
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "couchbases://" + strings.TrimPrefix(url, "https://")
	default:
		return "couchbase://" + url
	}
}

// Close closes the Couchbase connection
func (cm *ConnectionManager) Close() error {
	return cm.cluster.Close(nil)
}

// GetBucket returns the bucket instance
func (cm *ConnectionManager) GetBucket() *gocb.Bucket {
	return cm.bucket
}

// GetBucketName returns the bucket name
func (cm *ConnectionManager) GetBucketName() string {
	return cm.bucketName
}
