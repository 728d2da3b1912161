package checker

import (
	"fmt"
	"strings"

	"github.com/eaburns/effck/loc"
	"go.uber.org/zap"
)

const traceIndent = "\t"

var bullets = []string{"•", "◦", "▸", "▹"}

// tracer writes an indented outline of checker decisions
// to a logger at debug level.
// Each declaration traversal has its own tracer.
type tracer struct {
	log            *zap.Logger
	files          loc.Files
	trimPathPrefix string
	// maxDepth is the maximum traced depth;
	// 0 disables tracing and -1 is unlimited.
	maxDepth   int
	decl       string
	indent     string
	nextBullet int
}

type traceItem struct {
	tr     *tracer
	indent string
	bullet int
}

func newTracer(cfg Config, files loc.Files, decl string) *tracer {
	return &tracer{
		log:            cfg.logger(),
		files:          files,
		trimPathPrefix: cfg.TrimErrorPathPrefix,
		maxDepth:       cfg.TraceDepth,
		decl:           decl,
	}
}

func (tr *tracer) item(f string, vs ...interface{}) *traceItem {
	it := &traceItem{tr: tr, indent: tr.indent, bullet: tr.nextBullet}
	tr.indent += traceIndent
	tr.nextBullet++
	it.trace(f, vs...)
	return it
}

func (it *traceItem) done() {
	it.tr.indent = strings.TrimSuffix(it.tr.indent, traceIndent)
	it.tr.nextBullet--
}

func (it *traceItem) trace(f string, vs ...interface{}) {
	tr := it.tr
	if tr.maxDepth == 0 {
		return
	}
	depth := strings.Count(it.indent, traceIndent) + 1
	if tr.maxDepth > 0 && depth > tr.maxDepth {
		return
	}
	for i := range vs {
		l, ok := vs[i].(loc.Loc)
		if !ok {
			continue
		}
		lo := tr.files.Location(l)
		lo.Path = strings.TrimPrefix(lo.Path, tr.trimPathPrefix)
		vs[i] = lo
	}
	s := fmt.Sprintf(f, vs...)
	s = strings.TrimSuffix(s, "\n")
	s = strings.ReplaceAll(s, "\n", "\n"+it.indent+"  ")
	if it.bullet >= 0 {
		s = bullets[it.bullet%len(bullets)] + " " + s
		it.bullet = -1
	} else {
		s = "  " + s
	}
	tr.log.Debug(it.indent+s, zap.String("decl", tr.decl), zap.Int("depth", depth))
}
