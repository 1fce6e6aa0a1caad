package schema_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/regmap/reg"
	"github.com/sarchlab/regmap/schema"
)

var _ = Describe("Validator", func() {
	validate := func(src string) []schema.Diagnostic {
		doc, err := schema.Parse([]byte(src))
		Expect(err).To(BeNil())
		m, err := schema.Expand(doc)
		Expect(err).To(BeNil())
		return schema.Validate(m)
	}

	It("should pass a clean map with no diagnostics", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 64
    registers:
      - name: status
        fields:
          - {name: busy, bit: 0, access: ro}
          - {name: err, bits: "[4:1]", access: rw1c}
`)
		Expect(diags).To(BeEmpty())
	})

	It("should report a bit claimed by two fields, naming both and the register", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 64
    registers:
      - name: ctrl
        fields:
          - {name: first, bits: "[3:2]"}
          - {name: second, bits: "[4:3]"}
`)
		Expect(diags).ToNot(BeEmpty())

		found := false
		for _, d := range diags {
			if d.Register == "ctrl" && d.Field == "second" {
				Expect(d.Message).To(ContainSubstring("bit 3"))
				Expect(d.Message).To(ContainSubstring("first"))
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("should report duplicate register names within a block", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 64
    registers:
      - name: ctrl
      - name: ctrl
        offset: 0x10
`)
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Register).To(Equal("ctrl"))
		Expect(diags[0].Message).To(ContainSubstring("duplicate register name"))
	})

	It("should report duplicate field names within a register", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 64
    registers:
      - name: ctrl
        fields:
          - {name: en, bit: 0}
          - {name: en, bit: 1}
`)
		Expect(diags).ToNot(BeEmpty())
		Expect(diags[0].Field).To(Equal("en"))
	})

	It("should report overlapping address blocks", func() {
		diags := validate(`
name: t
address_blocks:
  - name: low
    base_address: 0x0000
    range: 0x2000
    registers: []
  - name: high
    base_address: 0x1000
    range: 0x1000
    registers: []
`)
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Block).To(Equal("low"))
		Expect(diags[0].Message).To(ContainSubstring("high"))
	})

	It("should report a register ending past the block range", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 4
    registers:
      - name: a
      - name: overflow
`)
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Register).To(Equal("overflow"))
	})

	It("should report an array ending past the block range", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 16
    registers:
      - name: buf
        count: 8
        stride: 4
`)
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Register).To(Equal("buf"))
	})

	It("should accumulate findings instead of stopping at the first", func() {
		diags := validate(`
name: t
address_blocks:
  - name: b
    base_address: 0
    range: 4
    registers:
      - name: ctrl
        fields:
          - {name: a, bits: "[3:0]"}
          - {name: b, bits: "[5:2]"}
      - name: overflow
`)
		Expect(len(diags)).To(BeNumerically(">=", 2))
	})

	It("should report field geometry that does not fit the word", func() {
		m := &schema.MemoryMap{
			Blocks: []schema.Block{{
				Name:  "b",
				Range: 64,
				Registers: []schema.RegisterDescriptor{{
					Name: "r",
					Size: 32,
					Fields: []schema.FieldDescriptor{{
						Name:   "wide",
						Offset: 30,
						Width:  4,
						Access: reg.ReadWrite,
					}},
				}},
			}},
		}
		diags := schema.Validate(m)
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Field).To(Equal("wide"))
	})

	It("should render diagnostics with their location", func() {
		d := schema.Diagnostic{
			Block:    "b",
			Register: "ctrl",
			Field:    "en",
			Message:  "something",
		}
		Expect(d.String()).To(Equal("b/ctrl/en: something"))
	})
})
