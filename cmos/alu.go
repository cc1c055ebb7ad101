package cmos

// ALU operations. The one substantial difference from the NMOS core is
// decimal-mode ADC/SBC: the 65C02 redesign computes N and Z from the
// fully BCD-corrected result rather than NMOS's binary-sum/intermediate
// quirk, and costs one extra bus cycle (handled by the dispatch table,
// not here) to do the correction in hardware. V is computed as on NMOS:
// for ADC from the sum before the high-nibble $60 correction, for SBC
// from the binary difference.

func (e *Engine) aluADC(v uint8) {
	if e.f.d {
		e.adcDecimal(v)
		return
	}
	e.adcBinary(v)
}

func (e *Engine) adcBinary(v uint8) {
	c := e.f.carryBit()
	sum := uint16(e.A) + uint16(v) + uint16(c)
	result := uint8(sum)
	e.f.v = (e.A^v)&0x80 == 0 && (e.A^result)&0x80 != 0
	e.f.setCarry(sum > 0xFF)
	e.A = result
	e.f.setNZ(e.A)
}

func (e *Engine) adcDecimal(v uint8) {
	c := e.f.carryBit()
	al := int(e.A&0x0F) + int(v&0x0F) + int(c)
	if al >= 0x0A {
		al = ((al + 0x06) & 0x0F) + 0x10
	}
	temp := int(e.A&0xF0) + int(v&0xF0) + al
	vflag := (^(int(e.A)^int(v))&(int(e.A)^temp))&0x80 != 0
	carryOut := temp >= 0xA0
	if carryOut {
		temp += 0x60
	}
	e.A = uint8(temp)
	e.f.v = vflag
	e.f.setCarry(carryOut)
	e.f.setNZ(e.A)
}

func (e *Engine) aluSBC(v uint8) {
	if e.f.d {
		e.sbcDecimal(v)
		return
	}
	e.sbcBinary(v)
}

func (e *Engine) sbcBinary(v uint8) {
	e.adcBinary(^v)
}

func (e *Engine) sbcDecimal(v uint8) {
	c := e.f.carryBit()
	borrowIn := int(1) - int(c)
	binDiff := int(e.A) - int(v) - borrowIn
	e.f.setCarry(binDiff >= 0)
	e.f.v = (e.A^v)&0x80 != 0 && (e.A^uint8(binDiff))&0x80 != 0

	al := int(e.A&0x0F) - int(v&0x0F) - borrowIn
	if al < 0 {
		al = ((al - 0x06) & 0x0F) - 0x10
	}
	temp := int(e.A&0xF0) - int(v&0xF0) + al
	if temp < 0 {
		temp -= 0x60
	}
	e.A = uint8(temp)
	e.f.setNZ(e.A)
}

func (e *Engine) aluAND(v uint8) { e.A &= v; e.f.setNZ(e.A) }
func (e *Engine) aluORA(v uint8) { e.A |= v; e.f.setNZ(e.A) }
func (e *Engine) aluEOR(v uint8) { e.A ^= v; e.f.setNZ(e.A) }

func (e *Engine) aluASL(v uint8) uint8 {
	e.f.setCarry(v&0x80 != 0)
	r := v << 1
	e.f.setNZ(r)
	return r
}

func (e *Engine) aluLSR(v uint8) uint8 {
	e.f.setCarry(v&0x01 != 0)
	r := v >> 1
	e.f.setNZ(r)
	return r
}

func (e *Engine) aluROL(v uint8) uint8 {
	c := e.f.carryBit()
	e.f.setCarry(v&0x80 != 0)
	r := (v << 1) | c
	e.f.setNZ(r)
	return r
}

func (e *Engine) aluROR(v uint8) uint8 {
	c := e.f.carryBit()
	e.f.setCarry(v&0x01 != 0)
	r := (v >> 1) | (c << 7)
	e.f.setNZ(r)
	return r
}

func (e *Engine) aluINC(v uint8) uint8 { r := v + 1; e.f.setNZ(r); return r }
func (e *Engine) aluDEC(v uint8) uint8 { r := v - 1; e.f.setNZ(r); return r }

func (e *Engine) aluBIT(v uint8) {
	e.f.z = e.A & v
	e.f.n = v
	e.f.v = v&0x40 != 0
}

// aluBITImmediate is the 65C02 addition BIT #imm: unlike the memory
// forms, it only ever affects Z (N and V read from memory bit 7/6, which
// an immediate operand doesn't have in the same sense).
func (e *Engine) aluBITImmediate(v uint8) {
	e.f.z = e.A & v
}

func (e *Engine) aluCompare(reg, v uint8) {
	r := reg - v
	e.f.setNZ(r)
	e.f.setCarry(reg >= v)
}

func (e *Engine) aluTRB(v uint8) uint8 {
	e.f.z = e.A & v
	return v &^ e.A
}

func (e *Engine) aluTSB(v uint8) uint8 {
	e.f.z = e.A & v
	return v | e.A
}
