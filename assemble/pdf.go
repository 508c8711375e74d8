package assemble

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"time"

	"scankit/pages"
)

// PDF generation. Each page carries one FlateDecode DeviceRGB image
// XObject painted over the full MediaBox; the MediaBox derives from the
// page's pixel dimensions and stored resolution, so a page normalized
// to A4 renders at true A4 physical size.

const pointsPerInch = 72.0

func writePDF(list []*pages.Page, path string) error {
	data, err := buildPDF(list)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func buildPDF(list []*pages.Page) ([]byte, error) {
	w := newPDFWriter()

	const (
		catalogNum = 1
		pagesNum   = 2
		infoNum    = 3
	)
	// Per-page object triplet: image, content stream, page dict.
	imageNum := func(i int) int { return 4 + 3*i }
	contentNum := func(i int) int { return 5 + 3*i }
	pageNum := func(i int) int { return 6 + 3*i }

	kids := &bytes.Buffer{}
	for i := range list {
		fmt.Fprintf(kids, "%d 0 R ", pageNum(i))
	}
	w.writeObj(catalogNum, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesNum))
	w.writeObj(pagesNum, fmt.Sprintf("<< /Type /Pages /Count %d /Kids [%s] >>", len(list), kids.String()))
	w.writeObj(infoNum, fmt.Sprintf("<< /Producer (scankit) /CreationDate (%s) >>", pdfDate(time.Now())))

	for i, p := range list {
		if !p.Resolution.Valid() {
			return nil, fmt.Errorf("page %d: invalid resolution %s", i, p.Resolution)
		}
		b := p.Image.Bounds()
		pw, ph := b.Dx(), b.Dy()
		if pw == 0 || ph == 0 {
			return nil, fmt.Errorf("page %d: empty image", i)
		}

		rgb, err := deflate(rgbBytes(p.Image))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		w.writeStream(imageNum(i), fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode /Length %d >>",
			pw, ph, len(rgb)), rgb)

		wpt := float64(pw) * pointsPerInch / float64(p.Resolution.X)
		hpt := float64(ph) * pointsPerInch / float64(p.Resolution.Y)
		content := []byte(fmt.Sprintf("q\n%.4f 0 0 %.4f 0 0 cm\n/Im0 Do\nQ\n", wpt, hpt))
		w.writeStream(contentNum(i), fmt.Sprintf("<< /Length %d >>", len(content)), content)

		w.writeObj(pageNum(i), fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.4f %.4f] /Resources << /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>",
			pagesNum, wpt, hpt, imageNum(i), contentNum(i)))
	}

	return w.finish(catalogNum, infoNum), nil
}

// pdfWriter accumulates numbered objects and emits the classic xref
// table and trailer.
type pdfWriter struct {
	buf     bytes.Buffer
	offsets map[int]int64
	maxNum  int
}

func newPDFWriter() *pdfWriter {
	w := &pdfWriter{offsets: make(map[int]int64)}
	w.buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")
	return w
}

func (w *pdfWriter) writeObj(num int, body string) {
	w.offsets[num] = int64(w.buf.Len())
	if num > w.maxNum {
		w.maxNum = num
	}
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (w *pdfWriter) writeStream(num int, dict string, data []byte) {
	w.offsets[num] = int64(w.buf.Len())
	if num > w.maxNum {
		w.maxNum = num
	}
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nstream\n", num, dict)
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *pdfWriter) finish(rootNum, infoNum int) []byte {
	xrefOffset := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.maxNum+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= w.maxNum; i++ {
		if off, ok := w.offsets[i]; ok {
			fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
		} else {
			w.buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		w.maxNum+1, rootNum, infoNum, xrefOffset)
	return w.buf.Bytes()
}

// rgbBytes extracts packed 8-bit RGB samples, dropping alpha against
// the non-premultiplied pixel values.
func rgbBytes(src image.Image) []byte {
	b := src.Bounds()
	pw, ph := b.Dx(), b.Dy()
	nrgba, ok := src.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) || nrgba.Stride != pw*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, pw, ph))
		draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)
	}
	out := make([]byte, 0, pw*ph*3)
	for i := 0; i < pw*ph; i++ {
		off := i * 4
		out = append(out, nrgba.Pix[off], nrgba.Pix[off+1], nrgba.Pix[off+2])
	}
	return out
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfDate(t time.Time) string {
	return t.UTC().Format("D:20060102150405Z")
}
