// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud_storage

import (
	"compress/gzip"
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// CloudStorage
// uploads finished files to S3/minio in background
type CloudStorage interface {
	StoreFile(fileName string)
	Stop()
	Uploaded() int
}

type Request struct {
	FilePath string
}

type cloudStorage struct {
	inputQueue         chan Request
	done               chan struct{}
	stopOnce           sync.Once
	lock               sync.Mutex
	uploaded           int
	storageCredentials entities.MinioStorageCreds
	minioClient        *minioClient
	productionMode     bool
}

type minioClient struct {
	client *minio.Client
	error  error
}

const (
	ObjectPrefix   = "InspectionDumps"
	queueSize      = 16
	uploadAttempts = 3
	pcapMimeType   = "application/vnd.tcpdump.pcap"
	secureScheme   = "https://"
	insecureScheme = "http://"
)

// common functions

// mustGetSystemCertPool
// acquires certification pool
func mustGetSystemCertPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return x509.NewCertPool()
	}
	return pool
}

// splitEndpoint
// minio expects a bare host:port, the scheme selects TLS
func splitEndpoint(endpoint string) (string, bool) {
	if strings.HasPrefix(endpoint, insecureScheme) {
		return strings.TrimPrefix(endpoint, insecureScheme), false
	}
	return strings.TrimPrefix(endpoint, secureScheme), true
}

// createMinioClient
// creates minio instance
func createMinioClient(minioCredentials *entities.MinioStorageCreds) *minioClient {
	if !minioCredentials.IsActive {
		return nil // inactive storage does not require full fledged client
	}
	client := new(minioClient)
	host, secure := splitEndpoint(minioCredentials.Endpoint)
	tr, err := minio.DefaultTransport(secure)
	if err != nil {
		log.Warnf("error creating the minio connection: error creating the default transport layer: %v", err)
		client.error = err
		return client
	}
	if secure && minioCredentials.Crt != view.EmptyString {
		pemBytes, err := base64.StdEncoding.DecodeString(minioCredentials.Crt)
		if err != nil {
			log.Warnf("unable to decode storage certificate: %v", err)
			client.error = err
			return client
		}
		rootCAs := mustGetSystemCertPool()
		if !rootCAs.AppendCertsFromPEM(pemBytes) {
			log.Warnf("no certificates found in %d bytes of storage certificate", len(pemBytes))
		}
		tr.TLSClientConfig.RootCAs = rootCAs
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:     credentials.NewStaticV4(minioCredentials.AccessKeyId, minioCredentials.SecretAccessKey, ""),
		Secure:    secure,
		Transport: tr,
	})
	if err != nil {
		log.Warn(err.Error())
		client.error = err
		return client
	}
	log.Infof("MINIO instance initialized for %s", host)
	client.client = mc
	return client
}

// NewCloudStorage
// creates interface instance and starts the upload goroutine
func NewCloudStorage(minioCredentials entities.MinioStorageCreds, productionMode bool) CloudStorage {
	ret := &cloudStorage{
		inputQueue:         make(chan Request, queueSize),
		done:               make(chan struct{}),
		storageCredentials: minioCredentials,
		minioClient:        createMinioClient(&minioCredentials),
		productionMode:     productionMode,
	}
	utils.SafeAsync(func() {
		storeProcedure(ret)
	}) // +SafeAsync
	return ret
}

// compressFile
// gzips the file next to the original and returns the compressed file name
func compressFile(filePath string) (string, error) {
	inputFile, err := os.Open(filePath)
	if err != nil {
		return filePath, fmt.Errorf("unable to open file '%s' to compress it. Error: %v", filePath, err)
	}
	defer func(fh *os.File) {
		if err := fh.Close(); err != nil {
			log.Warnf("unable to close input file '%s'. Error: %v", filePath, err)
		}
	}(inputFile)
	outputFileName := filePath + view.GzipSuffix
	outputFile, err := os.Create(outputFileName)
	if err != nil {
		return filePath, fmt.Errorf("unable to create compressed file '%s'. Error: %v", outputFileName, err)
	}
	wz := gzip.NewWriter(outputFile)
	wz.Name = filepath.Base(filePath) // set filename in archive metadata
	_, err = io.Copy(wz, inputFile)
	if closeErr := wz.Close(); err == nil {
		err = closeErr
	}
	if closeErr := outputFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(outputFileName); rmErr != nil {
			log.Errorf("unable to remove improperly compressed file '%s'. Error: %v", outputFileName, rmErr)
		}
		return filePath, fmt.Errorf("unable to compress '%s'. Error: %v", filePath, err)
	}
	return outputFileName, nil
}

// storeProcedure
// goroutine to serve file storing
func storeProcedure(s3 *cloudStorage) {
	defer close(s3.done)
	for req := range s3.inputQueue {
		if req.FilePath == view.EmptyString {
			continue
		}
		if !s3.storageCredentials.IsActive {
			log.Printf("storage inactive. do not store file %s", req.FilePath)
			continue
		}
		if s3.minioClient == nil || s3.minioClient.client == nil {
			log.Errorf("storage client unavailable, file %s kept locally", req.FilePath)
			continue
		}
		// compress file contents
		if s3.storageCredentials.CompressBeforeUpload && !strings.HasSuffix(req.FilePath, view.GzipSuffix) {
			compressed, err := compressFile(req.FilePath)
			if err != nil {
				log.Error(err.Error())
				continue
			}
			if err := os.Remove(req.FilePath); err != nil {
				log.Warnf("unable to delete uncompressed file %s. Error: %v", req.FilePath, err)
			}
			req.FilePath = compressed
		}
		// let's make a couple attempts to store file
		for i := 0; i < uploadAttempts; i++ {
			ctx := context.Background()
			if err := s3.createBucketIfNotExists(ctx); err != nil {
				log.Errorf("unable to acquire bucket for file '%s'. Error: '%v'", req.FilePath, err)
				continue
			}
			size, err := s3.uploadFile(ctx, req.FilePath)
			if err != nil {
				log.Errorf("unable to store file '%s'. Error: %v", req.FilePath, err)
				continue
			}
			log.Printf("stored %d byte(s) from file '%s' in s3/minio", size, req.FilePath)
			s3.lock.Lock()
			s3.uploaded++
			s3.lock.Unlock()
			break
		}
		if s3.productionMode {
			if err := os.Remove(req.FilePath); err != nil && !os.IsNotExist(err) {
				log.Errorf("unable to delete input file '%s'. Error: %v", req.FilePath, err)
			}
		} else {
			log.Debugf("file '%s' was not deleted in non-production mode", req.FilePath)
		}
	}
}

func buildObjectName(prefix, fileName string) string {
	return fmt.Sprintf("%s/%s", prefix, fileName)
}

// interface implementation

// StoreFile
// function to receive file store requests
func (s3 *cloudStorage) StoreFile(fileName string) {
	s3.inputQueue <- Request{FilePath: fileName}
	log.Debugf("requested to store file: %s", fileName)
}

// Stop
// finishes queued uploads and stops the upload goroutine
func (s3 *cloudStorage) Stop() {
	s3.stopOnce.Do(func() {
		close(s3.inputQueue)
	})
	<-s3.done
}

// Uploaded
// number of files stored so far
func (s3 *cloudStorage) Uploaded() int {
	s3.lock.Lock()
	defer s3.lock.Unlock()
	return s3.uploaded
}

// functions

func (s3 *cloudStorage) createBucketIfNotExists(ctx context.Context) error {
	bucket := s3.storageCredentials.BucketName
	exists, err := s3.minioClient.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		log.Debugf("Using S3/Minio bucket '%s'", bucket)
		return nil
	}
	if err = s3.minioClient.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	log.Debugf("S3/Minio bucket '%s' has been created", bucket)
	return nil
}

func (s3 *cloudStorage) uploadFile(ctx context.Context, filePath string) (int64, error) {
	opts := minio.PutObjectOptions{ContentType: pcapMimeType}
	if strings.HasSuffix(filePath, view.GzipSuffix) {
		opts.ContentEncoding = "gzip"
	}
	info, err := s3.minioClient.client.FPutObject(ctx, s3.storageCredentials.BucketName,
		buildObjectName(ObjectPrefix, filepath.Base(filePath)), filePath, opts)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}
