// Licensed under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package write implements the write path: serializing engine rows into
// column files with deterministic, collision-free names.
package write

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/google/uuid"
)

// TaskAttempt identifies one writing task of a distributed job. Ordinal is
// the task's position within the job and JobID is shared by every task of
// the job, so concurrent tasks writing into one directory can never collide.
// Bucket is the bucket ordinal for bucketed output, or -1.
type TaskAttempt struct {
	Ordinal int
	JobID   uuid.UUID
	Bucket  int
}

// DataFileName returns the deterministic file name for a task attempt:
// a fixed "part-r-" prefix, the zero-padded task ordinal, the job id, the
// optional zero-padded bucket ordinal and the optional compression
// extension. Re-running the same task yields the same name, so a retry
// overwrites its predecessor instead of duplicating rows.
func DataFileName(attempt TaskAttempt, codec compress.Compression) string {
	name := fmt.Sprintf("part-r-%05d-%s", attempt.Ordinal, attempt.JobID)
	if attempt.Bucket >= 0 {
		name += fmt.Sprintf("-%05d", attempt.Bucket)
	}
	if ext := codecExtension(codec); ext != "" {
		name += "." + ext
	}

	return name + ".parquet"
}

func codecExtension(codec compress.Compression) string {
	switch codec {
	case compress.Codecs.Snappy:
		return "snappy"
	case compress.Codecs.Gzip:
		return "gz"
	case compress.Codecs.Zstd:
		return "zstd"
	case compress.Codecs.Brotli:
		return "br"
	case compress.Codecs.Lz4Raw:
		return "lz4"
	default:
		return ""
	}
}

// CodecFromName maps a configured codec name onto the storage layer's
// compression setting. Unrecognized names fall back to uncompressed.
func CodecFromName(name string) compress.Compression {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "brotli":
		return compress.Codecs.Brotli
	case "lz4":
		return compress.Codecs.Lz4Raw
	default:
		return compress.Codecs.Uncompressed
	}
}
