package predicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

func TestRange_WriteDataFieldOrder(t *testing.T) {
	r := mustRange(t, "age", value.Int(18), true, value.Float(65.5), false)

	out := wire.NewOutput()
	require.NoError(t, r.WriteData(out))

	in := wire.NewInput(out.Bytes(), New)
	attr, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "age", attr)

	from, err := in.ReadValue()
	require.NoError(t, err)
	assert.Equal(t, value.Int(18), from)

	fromIn, err := in.ReadBool()
	require.NoError(t, err)
	assert.True(t, fromIn)

	to, err := in.ReadValue()
	require.NoError(t, err)
	assert.Equal(t, value.Float(65.5), to)

	toIn, err := in.ReadBool()
	require.NoError(t, err)
	assert.False(t, toIn)

	assert.Zero(t, in.Remaining())
}

func TestRange_ReadDataRestoresFields(t *testing.T) {
	src := mustRange(t, "name", value.String("a"), false, value.Enum{Type: "Letter", Name: "m"}, true)
	out := wire.NewOutput()
	require.NoError(t, src.WriteData(out))

	var dst Range
	require.NoError(t, dst.ReadData(wire.NewInput(out.Bytes(), New)))
	assert.Equal(t, "name", dst.Attribute())
	assert.Equal(t, value.String("a"), dst.From())
	assert.False(t, dst.FromInclusive())
	assert.Equal(t, value.Enum{Type: "Letter", Name: "m"}, dst.To())
	assert.True(t, dst.ToInclusive())
	assert.Equal(t, src.String(), dst.String())
}

func TestRange_ReadDataExactlyOnce(t *testing.T) {
	src := mustRange(t, "age", value.Int(18), true, value.Int(65), false)
	out := wire.NewOutput()
	require.NoError(t, src.WriteData(out))
	data := out.Bytes()

	var dst Range
	require.NoError(t, dst.ReadData(wire.NewInput(data, New)))

	err := dst.ReadData(wire.NewInput(data, New))
	assert.True(t, queryerr.IsContractViolation(err), "second ReadData")

	err = src.ReadData(wire.NewInput(data, New))
	assert.True(t, queryerr.IsContractViolation(err), "ReadData into a constructed instance")
	assert.Equal(t, value.Int(18), src.From(), "constructed instance left untouched")
}

func TestRange_ReadDataRejectsNullBound(t *testing.T) {
	out := wire.NewOutput()
	out.WriteString("age")
	require.NoError(t, out.WriteValue(value.Null{}))
	out.WriteBool(true)
	require.NoError(t, out.WriteValue(value.Int(65)))
	out.WriteBool(false)

	var dst Range
	err := dst.ReadData(wire.NewInput(out.Bytes(), New))
	assert.True(t, queryerr.IsInvalidArgument(err))
}

func TestRange_ReadDataTruncated(t *testing.T) {
	src := mustRange(t, "age", value.Int(18), true, value.Int(65), false)
	out := wire.NewOutput()
	require.NoError(t, src.WriteData(out))
	data := out.Bytes()

	for n := range len(data) {
		var dst Range
		assert.Error(t, dst.ReadData(wire.NewInput(data[:n], New)), "prefix of %d bytes", n)
	}
}

func TestReadData_FailedReadLeavesInstanceEmpty(t *testing.T) {
	src := mustRange(t, "age", value.Int(18), true, value.Int(65), false)
	out := wire.NewOutput()
	require.NoError(t, src.WriteData(out))
	data := out.Bytes()

	var dst Range
	require.Error(t, dst.ReadData(wire.NewInput(data[:len(data)-1], New)))
	require.NoError(t, dst.ReadData(wire.NewInput(data, New)), "retry after a failed read")
	assert.Equal(t, src.String(), dst.String())

	not := &Not{}
	require.Error(t, not.ReadData(wire.NewInput([]byte{byte(ClassIsNull)}, New)))
	inner := wire.NewOutput()
	inner.WriteUvarint(uint64(ClassIsNull))
	inner.WriteString("age")
	require.NoError(t, not.ReadData(wire.NewInput(inner.Bytes(), New)))
	assert.Equal(t, "NOT (age IS NULL)", not.String())
}

func TestMarshal_RefusesLocalOnly(t *testing.T) {
	r := mustRange(t, "age", value.Int(18), true, value.Int(65), false)

	tests := []struct {
		name string
		pred Predicate
	}{
		{"range", r},
		{"and with range", must(NewAnd(must(NewIsNotNull("age")), r))},
		{"or with nested range", must(NewOr(must(NewIsNull("age")), must(NewNot(r))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.pred.Transferable())
			data, err := Marshal(tt.pred)
			require.Error(t, err)
			assert.Nil(t, data)
			assert.True(t, queryerr.IsContractViolation(err))
		})
	}
}

func TestUnmarshal_RefusesLocalOnly(t *testing.T) {
	// Hand-frame a Range, bypassing the write-side check.
	src := mustRange(t, "age", value.Int(18), true, value.Int(65), false)
	out := wire.NewOutput()
	out.WriteUvarint(uint64(ClassRange))
	require.NoError(t, src.WriteData(out))
	payload := append([]byte{'g', 'p', 1}, out.Bytes()...)

	p, err := Unmarshal(payload)
	assert.Nil(t, p)
	assert.True(t, queryerr.IsContractViolation(err))
}

func TestMarshal_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	preds := []Predicate{
		must(NewEqual("age", value.Int(40))),
		must(NewEqual("grade", value.Enum{Type: "Grade", Name: "A"})),
		must(NewGreater("score", value.Float(-1.5), true)),
		must(NewLess("created", value.NewTime(at), false)),
		must(NewBetween("name", value.String("caf\u00e9"), value.String("zz"))),
		must(NewIsNull("deleted")),
		must(NewIsNotNull("owner")),
		must(NewNot(must(NewEqual("active", value.Bool(false))))),
		must(NewAnd()),
		must(NewOr()),
		must(NewAnd(
			must(NewBetween("age", value.Int(18), value.Int(65))),
			must(NewOr(must(NewIsNull("email")), must(NewNot(must(NewEqual("email", value.String(""))))))),
		)),
	}
	for _, p := range preds {
		t.Run(p.String(), func(t *testing.T) {
			require.True(t, p.Transferable())
			data, err := Marshal(p)
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, p.String(), got.String())
			assert.Equal(t, p.ClassID(), got.ClassID())

			again, err := Marshal(got)
			require.NoError(t, err)
			assert.Equal(t, data, again, "encoding is deterministic")
		})
	}
}

func TestUnmarshal_DecodedIsPopulated(t *testing.T) {
	data, err := Marshal(must(NewIsNull("age")))
	require.NoError(t, err)
	p, err := Unmarshal(data)
	require.NoError(t, err)

	out := wire.NewOutput()
	require.NoError(t, p.WriteData(out))
	err = p.ReadData(wire.NewInput(out.Bytes(), New))
	assert.True(t, queryerr.IsContractViolation(err))
}

func TestUnmarshal_Malformed(t *testing.T) {
	good, err := Marshal(must(NewBetween("age", value.Int(1), value.Int(2))))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", []byte{'g', 'p', 1}},
		{"unknown class", []byte{'g', 'p', 1, 99}},
		{"truncated", good[:len(good)-1]},
		{"trailing", append(append([]byte{}, good...), 0)},
		{"huge operand count", []byte{'g', 'p', 1, byte(ClassAnd), 0xff, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Unmarshal(tt.data)
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestNew_KnowsEveryClass(t *testing.T) {
	for id := ClassEqual; id <= ClassRange; id++ {
		obj, ok := New(id)
		require.True(t, ok, id.String())
		assert.Equal(t, id, obj.ClassID())
	}
	_, ok := New(0)
	assert.False(t, ok)
}

func TestUnmarshal_NestingLimit(t *testing.T) {
	payload := []byte{'g', 'p', 1}
	for range 1 << 20 {
		payload = append(payload, byte(ClassNot))
	}
	p, err := Unmarshal(payload)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.True(t, queryerr.IsInvalidArgument(err))
}
