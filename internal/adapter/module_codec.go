package adapter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	m "modhook.dev/pkg/modhook/internal/model"
)

// Module file layout constants.
const (
	moduleMagic         = "HMOD"
	moduleFormatVersion = 1
	maxTypeDepth        = 32
	headerSize          = 8
	footerSize          = 4
)

var (
	errTruncated     = errors.New("unexpected end of data")
	errBadMagic      = errors.New("bad magic")
	errChecksum      = errors.New("checksum mismatch")
	errTrailingBytes = errors.New("trailing bytes after module")
)

// EncodeModule serialises a module. The model is validated first so an
// invalid module never produces bytes.
func EncodeModule(mod *m.Module) ([]byte, error) {
	if err := validateModule(mod); err != nil {
		return nil, err
	}

	enc := newEncoder()

	var head bytes.Buffer
	putUvarint(&head, enc.str(mod.Name))
	putUvarint(&head, uint64(len(mod.References)))

	for _, ref := range mod.References {
		putUvarint(&head, enc.str(ref))
	}

	var types bytes.Buffer
	putUvarint(&types, uint64(len(mod.Types)))

	for _, t := range mod.Types {
		enc.typeDef(&types, t)
	}

	var refs bytes.Buffer
	putUvarint(&refs, uint64(len(enc.refs)))

	for _, r := range enc.refs {
		putUvarint(&refs, enc.strIndex[r.Scope])
		putUvarint(&refs, enc.strIndex[r.DeclaringType])
		putUvarint(&refs, enc.strIndex[r.Name])
		putUvarint(&refs, enc.strIndex[r.ReturnType])
		putUvarint(&refs, uint64(len(r.Params)))

		for _, p := range r.Params {
			putUvarint(&refs, enc.strIndex[p])
		}
	}

	var out bytes.Buffer
	out.WriteString(moduleMagic)
	_ = binary.Write(&out, binary.LittleEndian, uint16(moduleFormatVersion))
	_ = binary.Write(&out, binary.LittleEndian, mod.Flags)

	putUvarint(&out, uint64(len(enc.strings)))

	for _, s := range enc.strings {
		putUvarint(&out, uint64(len(s)))
		out.WriteString(s)
	}

	out.Write(head.Bytes())
	out.Write(refs.Bytes())
	out.Write(types.Bytes())

	_ = binary.Write(&out, binary.LittleEndian, crc32.ChecksumIEEE(out.Bytes()))

	return out.Bytes(), nil
}

// DecodeModule parses module bytes. Any structural problem is reported as a
// *model.ParseError.
func DecodeModule(data []byte) (*m.Module, error) {
	if len(data) < headerSize+footerSize {
		return nil, &m.ParseError{Offset: int64(len(data)), Err: errTruncated}
	}

	if string(data[:4]) != moduleMagic {
		return nil, &m.ParseError{Offset: 0, Err: errBadMagic}
	}

	payload := data[:len(data)-footerSize]

	sum := binary.LittleEndian.Uint32(data[len(data)-footerSize:])
	if crc32.ChecksumIEEE(payload) != sum {
		return nil, &m.ParseError{Offset: int64(len(payload)), Err: errChecksum}
	}

	dec := &decoder{data: payload, off: 4}

	mod, err := dec.module()
	if err != nil {
		return nil, &m.ParseError{Offset: int64(dec.off), Err: err}
	}

	if dec.off != len(payload) {
		return nil, &m.ParseError{Offset: int64(dec.off), Err: errTrailingBytes}
	}

	return mod, nil
}

func validateModule(mod *m.Module) error {
	var check func(t *m.TypeDef, depth int) error

	check = func(t *m.TypeDef, depth int) error {
		if depth > maxTypeDepth {
			return fmt.Errorf("type %s nested deeper than %d", t.FullName(), maxTypeDepth)
		}

		for _, md := range t.Methods {
			if md.Body == nil {
				continue
			}

			if err := md.Body.Validate(); err != nil {
				return fmt.Errorf("%s: %w", md.FullName(), err)
			}
		}

		for _, nested := range t.Nested {
			if err := check(nested, depth+1); err != nil {
				return err
			}
		}

		return nil
	}

	for _, t := range mod.Types {
		if err := check(t, 1); err != nil {
			return err
		}
	}

	return nil
}

type encoder struct {
	strings  []string
	strIndex map[string]uint64
	refs     []m.MethodRef
	refIndex map[string]uint64
}

func newEncoder() *encoder {
	return &encoder{
		strIndex: make(map[string]uint64),
		refIndex: make(map[string]uint64),
	}
}

func (e *encoder) str(s string) uint64 {
	if idx, ok := e.strIndex[s]; ok {
		return idx
	}

	idx := uint64(len(e.strings))
	e.strings = append(e.strings, s)
	e.strIndex[s] = idx

	return idx
}

func (e *encoder) ref(r *m.MethodRef) uint64 {
	key := r.Scope + "\x00" + r.String()
	if idx, ok := e.refIndex[key]; ok {
		return idx
	}

	e.str(r.Scope)
	e.str(r.DeclaringType)
	e.str(r.Name)
	e.str(r.ReturnType)

	for _, p := range r.Params {
		e.str(p)
	}

	idx := uint64(len(e.refs))
	e.refs = append(e.refs, *r)
	e.refIndex[key] = idx

	return idx
}

func (e *encoder) typeDef(buf *bytes.Buffer, t *m.TypeDef) {
	putUvarint(buf, e.str(t.Name))
	putUvarint(buf, uint64(t.Flags))

	putUvarint(buf, uint64(len(t.Fields)))

	for _, f := range t.Fields {
		putUvarint(buf, e.str(f.Name))
		putUvarint(buf, e.str(f.Type))
		putUvarint(buf, uint64(f.Flags))

		switch {
		case f.Constant == nil || f.Constant.Kind == m.ConstNone:
			buf.WriteByte(byte(m.ConstNone))
		case f.Constant.Kind == m.ConstInt:
			buf.WriteByte(byte(m.ConstInt))
			putVarint(buf, f.Constant.Int)
		default:
			buf.WriteByte(byte(m.ConstString))
			putUvarint(buf, e.str(f.Constant.Str))
		}
	}

	putUvarint(buf, uint64(len(t.Methods)))

	for _, md := range t.Methods {
		putUvarint(buf, e.str(md.Name))
		putUvarint(buf, e.str(md.ReturnType))
		putUvarint(buf, uint64(md.Flags))
		putUvarint(buf, uint64(len(md.Params)))

		for _, p := range md.Params {
			putUvarint(buf, e.str(p.Name))
			putUvarint(buf, e.str(p.Type))
		}

		if md.Body == nil {
			buf.WriteByte(0)
			continue
		}

		buf.WriteByte(1)
		e.body(buf, md.Body)
	}

	putUvarint(buf, uint64(len(t.Nested)))

	for _, nested := range t.Nested {
		e.typeDef(buf, nested)
	}
}

func (e *encoder) body(buf *bytes.Buffer, b *m.Body) {
	positions := make(map[m.InstrID]uint64, b.Len())
	for pos := range b.Len() {
		positions[b.ID(pos)] = uint64(pos)
	}

	end := uint64(b.Len())
	posOf := func(id m.InstrID) uint64 {
		if id == m.EndOfBody {
			return end
		}

		return positions[id]
	}

	putUvarint(buf, uint64(b.MaxStack))
	putUvarint(buf, end)

	for _, ins := range b.All() {
		buf.WriteByte(byte(ins.OpCode))

		switch ins.OpCode.Operand() {
		case m.OperandInt:
			putVarint(buf, ins.Int)
		case m.OperandString, m.OperandToken:
			putUvarint(buf, e.str(ins.Str))
		case m.OperandMethod:
			putUvarint(buf, e.ref(ins.Method))
		case m.OperandBranch:
			putUvarint(buf, posOf(ins.Target))
		case m.OperandSwitch:
			putUvarint(buf, uint64(len(ins.Targets)))

			for _, target := range ins.Targets {
				putUvarint(buf, posOf(target))
			}
		}
	}

	putUvarint(buf, uint64(len(b.Handlers)))

	for _, h := range b.Handlers {
		buf.WriteByte(byte(h.Kind))
		putUvarint(buf, posOf(h.TryStart))
		putUvarint(buf, posOf(h.TryEnd))
		putUvarint(buf, posOf(h.HandlerStart))
		putUvarint(buf, posOf(h.HandlerEnd))
		putUvarint(buf, e.str(h.CatchType))
	}
}

func putUvarint(buf *bytes.Buffer, v uint64) {
	buf.Write(binary.AppendUvarint(nil, v))
}

func putVarint(buf *bytes.Buffer, v int64) {
	buf.Write(binary.AppendVarint(nil, v))
}

type decoder struct {
	data    []byte
	off     int
	strings []string
	refs    []m.MethodRef
}

func (d *decoder) remaining() int { return len(d.data) - d.off }

func (d *decoder) readByte() (byte, error) {
	if d.off >= len(d.data) {
		return 0, errTruncated
	}

	b := d.data[d.off]
	d.off++

	return b, nil
}

func (d *decoder) u16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, errTruncated
	}

	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2

	return v, nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.off:])
	if n <= 0 {
		return 0, errTruncated
	}

	d.off += n

	return v, nil
}

func (d *decoder) varint() (int64, error) {
	v, n := binary.Varint(d.data[d.off:])
	if n <= 0 {
		return 0, errTruncated
	}

	d.off += n

	return v, nil
}

// flags reads a flag word that must fit in 32 bits.
func (d *decoder) flags() (uint32, error) {
	v, err := d.uvarint()
	if err != nil {
		return 0, err
	}

	if v > math.MaxUint32 {
		return 0, fmt.Errorf("flags 0x%x exceed 32 bits", v)
	}

	return uint32(v), nil
}

// count reads a length prefix and rejects values that cannot fit in the
// remaining input.
func (d *decoder) count() (int, error) {
	v, err := d.uvarint()
	if err != nil {
		return 0, err
	}

	if v > uint64(d.remaining()) {
		return 0, fmt.Errorf("count %d exceeds remaining %d bytes", v, d.remaining())
	}

	return int(v), nil
}

func (d *decoder) str() (string, error) {
	idx, err := d.uvarint()
	if err != nil {
		return "", err
	}

	if idx >= uint64(len(d.strings)) {
		return "", fmt.Errorf("string index %d out of range", idx)
	}

	return d.strings[idx], nil
}

func (d *decoder) module() (*m.Module, error) {
	format, err := d.u16()
	if err != nil {
		return nil, err
	}

	if format != moduleFormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", format)
	}

	flags, err := d.u16()
	if err != nil {
		return nil, err
	}

	if err := d.heap(); err != nil {
		return nil, err
	}

	mod := &m.Module{Flags: flags}

	if mod.Name, err = d.str(); err != nil {
		return nil, err
	}

	nrefs, err := d.count()
	if err != nil {
		return nil, err
	}

	for range nrefs {
		ref, err := d.str()
		if err != nil {
			return nil, err
		}

		mod.References = append(mod.References, ref)
	}

	if err := d.memberRefs(); err != nil {
		return nil, err
	}

	ntypes, err := d.count()
	if err != nil {
		return nil, err
	}

	for range ntypes {
		t, err := d.typeDef(1)
		if err != nil {
			return nil, err
		}

		mod.AddType(t)
	}

	return mod, nil
}

func (d *decoder) heap() error {
	n, err := d.count()
	if err != nil {
		return err
	}

	d.strings = make([]string, 0, n)

	for range n {
		size, err := d.count()
		if err != nil {
			return err
		}

		d.strings = append(d.strings, string(d.data[d.off:d.off+size]))
		d.off += size
	}

	return nil
}

func (d *decoder) memberRefs() error {
	n, err := d.count()
	if err != nil {
		return err
	}

	d.refs = make([]m.MethodRef, 0, n)

	for range n {
		var r m.MethodRef

		for _, dst := range []*string{&r.Scope, &r.DeclaringType, &r.Name, &r.ReturnType} {
			if *dst, err = d.str(); err != nil {
				return err
			}
		}

		np, err := d.count()
		if err != nil {
			return err
		}

		for range np {
			p, err := d.str()
			if err != nil {
				return err
			}

			r.Params = append(r.Params, p)
		}

		d.refs = append(d.refs, r)
	}

	return nil
}

func (d *decoder) typeDef(depth int) (*m.TypeDef, error) {
	if depth > maxTypeDepth {
		return nil, fmt.Errorf("types nested deeper than %d", maxTypeDepth)
	}

	t := &m.TypeDef{}

	var err error
	if t.Name, err = d.str(); err != nil {
		return nil, err
	}

	flags, err := d.flags()
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", t.Name, err)
	}

	t.Flags = m.TypeFlags(flags)

	if err := d.fields(t); err != nil {
		return nil, err
	}

	if err := d.methods(t); err != nil {
		return nil, err
	}

	nn, err := d.count()
	if err != nil {
		return nil, err
	}

	for range nn {
		nested, err := d.typeDef(depth + 1)
		if err != nil {
			return nil, err
		}

		t.AddNested(nested)
	}

	return t, nil
}

func (d *decoder) fields(t *m.TypeDef) error {
	n, err := d.count()
	if err != nil {
		return err
	}

	for range n {
		f := &m.FieldDef{}

		if f.Name, err = d.str(); err != nil {
			return err
		}

		if f.Type, err = d.str(); err != nil {
			return err
		}

		flags, err := d.flags()
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}

		f.Flags = m.FieldFlags(flags)

		kind, err := d.readByte()
		if err != nil {
			return err
		}

		switch m.ConstantKind(kind) {
		case m.ConstNone:
		case m.ConstInt:
			v, err := d.varint()
			if err != nil {
				return err
			}

			f.Constant = &m.Constant{Kind: m.ConstInt, Int: v}
		case m.ConstString:
			s, err := d.str()
			if err != nil {
				return err
			}

			f.Constant = &m.Constant{Kind: m.ConstString, Str: s}
		default:
			return fmt.Errorf("field %s: unknown constant kind %d", f.Name, kind)
		}

		t.Fields = append(t.Fields, f)
	}

	return nil
}

func (d *decoder) methods(t *m.TypeDef) error {
	n, err := d.count()
	if err != nil {
		return err
	}

	for range n {
		md := &m.MethodDef{}

		if md.Name, err = d.str(); err != nil {
			return err
		}

		if md.ReturnType, err = d.str(); err != nil {
			return err
		}

		flags, err := d.flags()
		if err != nil {
			return fmt.Errorf("method %s: %w", md.Name, err)
		}

		md.Flags = m.MethodFlags(flags)

		np, err := d.count()
		if err != nil {
			return err
		}

		for range np {
			var p m.Param

			if p.Name, err = d.str(); err != nil {
				return err
			}

			if p.Type, err = d.str(); err != nil {
				return err
			}

			md.Params = append(md.Params, p)
		}

		hasBody, err := d.readByte()
		if err != nil {
			return err
		}

		switch hasBody {
		case 0:
		case 1:
			if md.Body, err = d.body(); err != nil {
				return fmt.Errorf("method %s: %w", md.Name, err)
			}
		default:
			return fmt.Errorf("method %s: bad body marker %d", md.Name, hasBody)
		}

		t.AddMethod(md)
	}

	return nil
}

func (d *decoder) body() (*m.Body, error) {
	maxStack, err := d.uvarint()
	if err != nil {
		return nil, err
	}

	if maxStack > math.MaxInt32 {
		return nil, fmt.Errorf("max stack %d out of range", maxStack)
	}

	ni, err := d.count()
	if err != nil {
		return nil, err
	}

	target := func() (m.InstrID, error) {
		pos, err := d.uvarint()
		if err != nil {
			return 0, err
		}

		if pos >= uint64(ni) {
			return 0, fmt.Errorf("branch target %d out of range", pos)
		}

		return m.InstrID(pos), nil
	}

	body := m.NewBody(int(maxStack))

	for i := range ni {
		op, err := d.readByte()
		if err != nil {
			return nil, err
		}

		ins := m.Instruction{OpCode: m.OpCode(op)}
		if !ins.OpCode.Known() {
			return nil, fmt.Errorf("instruction %d: unknown opcode 0x%02x", i, op)
		}

		switch ins.OpCode.Operand() {
		case m.OperandInt:
			if ins.Int, err = d.varint(); err != nil {
				return nil, err
			}
		case m.OperandString, m.OperandToken:
			if ins.Str, err = d.str(); err != nil {
				return nil, err
			}
		case m.OperandMethod:
			idx, err := d.uvarint()
			if err != nil {
				return nil, err
			}

			if idx >= uint64(len(d.refs)) {
				return nil, fmt.Errorf("instruction %d: member reference %d out of range", i, idx)
			}

			ref := d.refs[idx]
			ref.Params = append([]string(nil), ref.Params...)
			ins.Method = &ref
		case m.OperandBranch:
			if ins.Target, err = target(); err != nil {
				return nil, err
			}
		case m.OperandSwitch:
			n, err := d.count()
			if err != nil {
				return nil, err
			}

			ins.Targets = make([]m.InstrID, 0, n)

			for range n {
				id, err := target()
				if err != nil {
					return nil, err
				}

				ins.Targets = append(ins.Targets, id)
			}
		}

		body.Append(ins)
	}

	nh, err := d.count()
	if err != nil {
		return nil, err
	}

	bound := func() (m.InstrID, error) {
		pos, err := d.uvarint()
		if err != nil {
			return 0, err
		}

		switch {
		case pos == uint64(ni):
			return m.EndOfBody, nil
		case pos > uint64(ni):
			return 0, fmt.Errorf("handler bound %d out of range", pos)
		}

		return m.InstrID(pos), nil
	}

	for range nh {
		kind, err := d.readByte()
		if err != nil {
			return nil, err
		}

		h := m.ExceptionHandler{Kind: m.HandlerKind(kind)}
		if !h.Kind.Known() {
			return nil, fmt.Errorf("unknown handler kind %d", kind)
		}

		for _, dst := range []*m.InstrID{&h.TryStart, &h.TryEnd, &h.HandlerStart, &h.HandlerEnd} {
			if *dst, err = bound(); err != nil {
				return nil, err
			}
		}

		if h.CatchType, err = d.str(); err != nil {
			return nil, err
		}

		body.Handlers = append(body.Handlers, h)
	}

	return body, nil
}
