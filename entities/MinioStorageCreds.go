package entities

// MinioStorageCreds
// S3/minio connection parameters for dump uploads
type MinioStorageCreds struct {
	BucketName           string
	IsActive             bool
	Endpoint             string
	Crt                  string
	AccessKeyId          string
	SecretAccessKey      string
	CompressBeforeUpload bool // dumps written without compression are gzipped before upload
}
