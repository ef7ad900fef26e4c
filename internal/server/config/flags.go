package config

import (
	"flag"
	"os"
	"time"

	"github.com/chunksync/chunksync/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   bearer-token HMAC secret key
//	-x string   chunk object key prefix
//	-t int      presigned URL TTL, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-q string   SQS queue URL for store notifications
//	-n string   SQS endpoint override
//	-w int      SQS long-poll wait, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-x", "-t", "-u", "-p", "-b", "-g", "-e", "-q", "-n", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ObjectPrefix, "x", config.ObjectPrefix, "chunk object key prefix")

	presignTTL := fs.Int("t", int(config.PresignTTL.Minutes()), "presign_ttl (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.QueueURL, "q", config.QueueURL, "notification queue URL")
	fs.StringVar(&config.QueueEndpoint, "n", config.QueueEndpoint, "notification queue endpoint override")
	queueWaitTime := fs.Int("w", int(config.QueueWaitTime.Seconds()), "queue_wait_time (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PresignTTL = time.Duration(*presignTTL) * time.Minute
	config.QueueWaitTime = time.Duration(*queueWaitTime) * time.Second
}
