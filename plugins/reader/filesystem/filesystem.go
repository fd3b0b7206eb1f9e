package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"contactdir/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
}

// FileSystem 基于 afero 文件系统与 STDIN 的 Reader。
type FileSystem struct {
	fs      afero.Fs
	stdin   io.Reader
	bufSize int
}

// New 创建 FileSystem Reader；fs 为 nil 时使用操作系统文件系统。
func New(fs afero.Fs, opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSystem{fs: fs, stdin: os.Stdin, bufSize: b}
}

var _ contract.Reader = (*FileSystem)(nil)

// Open 以只读方式打开 path 并回调 yield；回调返回后关闭句柄。
// path 为 "-" 时读取 STDIN（不关闭）。
func (r *FileSystem) Open(ctx context.Context, path string, yield func(fileID contract.FileID, rd io.Reader) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p := strings.TrimSpace(path)
	if p == "" {
		return contract.NewLoadError(path, contract.ErrInvalidInput)
	}
	if p == "-" {
		return yield(contract.FileID("stdin"), bufio.NewReaderSize(r.stdin, r.bufSize))
	}

	// 跟随符号链接；仅接受常规文件
	info, err := r.fs.Stat(p)
	if err != nil {
		return contract.NewLoadError(p, err)
	}
	if info.IsDir() {
		return contract.NewLoadError(p, errors.New("is a directory"))
	}
	if !info.Mode().IsRegular() {
		return contract.NewLoadError(p, fmt.Errorf("not a regular file (%s)", info.Mode().Type()))
	}
	f, err := r.fs.Open(p)
	if err != nil {
		return contract.NewLoadError(p, err)
	}
	defer f.Close()
	return yield(contract.NormalizeFileID(p), bufio.NewReaderSize(f, r.bufSize))
}
