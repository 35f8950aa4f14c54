package config

import "strings"

// UploadConfig controls the multipart upload collaborator.
type UploadConfig struct {
    MaxBytes          int64
    AllowedExtensions map[string]bool // lower-case, with leading dot
}

// StorageConfig selects where uploaded files live.  Driver is "local"
// (default) or "s3"; the S3 fields follow the MinIO-compatible layout.
type StorageConfig struct {
    Driver         string
    LocalDir       string
    PublicPrefix   string // URL prefix local files are served under
    S3Bucket       string
    S3Region       string
    S3BaseEndpoint string
    S3AccessKey    string
    S3SecretKey    string
    S3PathStyle    bool
}

const defaultExtensions = ".pdf,.ppt,.pptx,.doc,.docx,.jpg,.jpeg,.png"

func LoadUploadConfig() UploadConfig {
    exts := map[string]bool{}
    for _, e := range splitList(envStr("UPLOAD_ALLOWED_EXTENSIONS", defaultExtensions)) {
        e = strings.ToLower(e)
        if !strings.HasPrefix(e, ".") {
            e = "." + e
        }
        exts[e] = true
    }
    return UploadConfig{
        MaxBytes:          envInt64("UPLOAD_MAX_BYTES", 10<<20),
        AllowedExtensions: exts,
    }
}

func LoadStorageConfig() StorageConfig {
    return StorageConfig{
        Driver:         strings.ToLower(envStr("STORAGE_DRIVER", "local")),
        LocalDir:       envStr("UPLOAD_DIR", "uploads"),
        PublicPrefix:   envStr("UPLOAD_PUBLIC_PREFIX", "/uploads"),
        S3Bucket:       envStr("S3_BUCKET", "scholrhub"),
        S3Region:       envStr("S3_REGION", "us-east-1"),
        S3BaseEndpoint: envStr("S3_BASE_ENDPOINT", ""),
        S3AccessKey:    envStr("S3_ACCESS_KEY", ""),
        S3SecretKey:    envStr("S3_SECRET_KEY", ""),
        S3PathStyle:    envBool("S3_PATH_STYLE", true),
    }
}
