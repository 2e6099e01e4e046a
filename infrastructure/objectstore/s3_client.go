// Package objectstore implements an S3-compatible blob store client
// over net/http with SigV4 request signing.
package objectstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"photovault/application/pipeline"
	"photovault/pkg/config"
)

// S3Client talks the S3 REST API directly. It implements
// pipeline.BlobStore.
type S3Client struct {
	endpoint   string
	region     string
	bucket     string
	accessKey  string
	secretKey  string
	useSSL     bool
	pathStyle  bool
	httpClient *http.Client
}

// NewS3Client builds a client from configuration.
func NewS3Client(cfg config.ObjectStoreConfig) *S3Client {
	return &S3Client{
		endpoint:  cfg.Endpoint,
		region:    cfg.Region,
		bucket:    cfg.Bucket,
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		useSSL:    cfg.UseSSL,
		pathStyle: cfg.PathStyle,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type initiateMultipartResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartUpload struct {
	XMLName xml.Name               `xml:"CompleteMultipartUpload"`
	Parts   []completeMultipartTag `xml:"Part"`
}

type completeMultipartTag struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

// InitiateMultipart starts a multipart upload and returns its id.
func (c *S3Client) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	query := url.Values{"uploads": {""}}
	req, err := c.createRequest(ctx, http.MethodPost, key, query, nil)
	if err != nil {
		return "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("initiate multipart: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", c.responseError("initiate multipart", resp)
	}

	var result initiateMultipartResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode initiate response: %w", err)
	}
	if result.UploadID == "" {
		return "", fmt.Errorf("initiate multipart: empty upload id")
	}
	return result.UploadID, nil
}

// UploadPart sends one part and returns its ETag.
func (c *S3Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	query := url.Values{
		"partNumber": {fmt.Sprintf("%d", partNumber)},
		"uploadId":   {uploadID},
	}
	req, err := c.createRequest(ctx, http.MethodPut, key, query, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(data))
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload part %d: %w", partNumber, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", c.responseError(fmt.Sprintf("upload part %d", partNumber), resp)
	}

	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return "", fmt.Errorf("upload part %d: missing etag", partNumber)
	}
	return etag, nil
}

// CompleteMultipart assembles the uploaded parts into the final object.
func (c *S3Client) CompleteMultipart(ctx context.Context, key, uploadID string, etags []string) error {
	payload := completeMultipartUpload{}
	for i, etag := range etags {
		payload.Parts = append(payload.Parts, completeMultipartTag{
			PartNumber: i + 1,
			ETag:       etag,
		})
	}
	body, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode complete request: %w", err)
	}

	query := url.Values{"uploadId": {uploadID}}
	req, err := c.createRequest(ctx, http.MethodPost, key, query, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/xml")
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("complete multipart: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.responseError("complete multipart", resp)
	}
	// a 200 can still carry an error document
	data, _ := io.ReadAll(resp.Body)
	if bytes.Contains(data, []byte("<Error>")) {
		return fmt.Errorf("complete multipart: %s", string(data))
	}
	return nil
}

// AbortMultipart discards an in-progress upload.
func (c *S3Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	query := url.Values{"uploadId": {uploadID}}
	req, err := c.createRequest(ctx, http.MethodDelete, key, query, nil)
	if err != nil {
		return err
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("abort multipart: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.responseError("abort multipart", resp)
	}
	return nil
}

// Head fetches the stored object's size and digest. The digest is the
// ETag the store computed, which for multipart uploads follows the
// hash-of-hashes-dash-partcount convention.
func (c *S3Client) Head(ctx context.Context, key string) (*pipeline.ObjectInfo, error) {
	req, err := c.createRequest(ctx, http.MethodHead, key, nil, nil)
	if err != nil {
		return nil, err
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.responseError("head object", resp)
	}
	return &pipeline.ObjectInfo{
		Size:   resp.ContentLength,
		Digest: strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	req, err := c.createRequest(ctx, http.MethodDelete, key, nil, nil)
	if err != nil {
		return err
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return c.responseError("delete object", resp)
	}
	return nil
}

// createRequest builds the request URL in path or virtual-host style.
func (c *S3Client) createRequest(ctx context.Context, method, key string, query url.Values, body io.Reader) (*http.Request, error) {
	scheme := "https"
	if !c.useSSL {
		scheme = "http"
	}

	var host, path string
	if c.pathStyle {
		host = c.endpoint
		path = "/" + c.bucket + "/" + key
	} else {
		host = c.bucket + "." + c.endpoint
		path = "/" + key
	}

	u := url.URL{Scheme: scheme, Host: host, Path: path}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *S3Client) responseError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(data)))
}

// sign applies AWS SigV4 with an unsigned payload hash.
func (c *S3Client) sign(req *http.Request) {
	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	payloadHash := "UNSIGNED-PAYLOAD"

	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	signedHeaderNames := []string{"host", "x-amz-content-sha256", "x-amz-date"}
	sort.Strings(signedHeaderNames)

	var canonicalHeaders strings.Builder
	for _, name := range signedHeaderNames {
		value := req.Header.Get(name)
		if name == "host" {
			value = req.URL.Host
		}
		canonicalHeaders.WriteString(name + ":" + strings.TrimSpace(value) + "\n")
	}
	signedHeaders := strings.Join(signedHeaderNames, ";")

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, c.region, "s3", "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hashSHA256([]byte(canonicalRequest)),
	}, "\n")

	dateKey := hmacSHA256([]byte("AWS4"+c.secretKey), dateStamp)
	regionKey := hmacSHA256(dateKey, c.region)
	serviceKey := hmacSHA256(regionKey, "s3")
	signingKey := hmacSHA256(serviceKey, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authorization := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		c.accessKey, scope, signedHeaders, signature,
	)
	req.Header.Set("Authorization", authorization)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
