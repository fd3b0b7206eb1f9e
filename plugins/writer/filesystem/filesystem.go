package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"contactdir/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现/平台默认。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 将目录文档原子写入 afero 文件系统。
type FS struct {
	fs      afero.Fs
	root    string
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer 实现；fs 为 nil 时使用操作系统文件系统。
func New(fs afero.Fs, opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, os.ErrInvalid
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	return &FS{fs: fs, root: opts.OutputDir, permF: pf, permD: pd, bufSize: bsz}, nil
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节原子写入到基于 id 映射的目标路径。
// 失败时返回 WriteError，且不留下临时文件或残缺的目标文件。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dest, err := w.mapPath(id)
	if err != nil {
		return contract.NewWriteError(string(id), err)
	}
	if err := w.fs.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return contract.NewWriteError(dest, err)
	}
	return contract.NewWriteError(dest, w.writeAtomic(ctx, dest, r))
}

// Path 返回 id 映射后的目标路径。
func (w *FS) Path(id contract.ArtifactID) (string, error) { return w.mapPath(id) }

// mapPath: 工件标识须为单个文件名（不含目录层级、卷名或 '..'），落在 OutputDir 下。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(string(id))
	if rel == "." || rel == ".." || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", contract.ErrPathInvalid
	}
	if rel != filepath.Base(rel) || strings.ContainsAny(string(id), `/\`) {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := afero.TempFile(w.fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：尽量与期望一致
	_ = w.fs.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := w.fs.Rename(tmpPath, dest); err != nil {
		_ = w.fs.Remove(tmpPath)
		return err
	}
	// 最佳努力：同步父目录，提升崩溃安全性
	_ = w.syncDir(dir)
	return nil
}

func (w *FS) syncDir(dir string) error {
	f, err := w.fs.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
