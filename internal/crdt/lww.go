package crdt

// Register - Last-Write-Wins регистр. Побеждает запись с большим ID,
// при равных счетчиках - с большим идентификатором реплики.
type Register struct {
	Value *Value
	ID    ID
}

// IsSet reports whether the register has received any write.
func (r *Register) IsSet() bool {
	return !r.ID.IsZero()
}

// Wins проверяет, перезапишет ли операция id текущее значение.
func (r *Register) Wins(id ID) bool {
	return !r.IsSet() || r.ID.Less(id)
}

// Set записывает значение, если id новее текущего.
// Возвращает true, если регистр изменился.
func (r *Register) Set(id ID, v *Value) bool {
	if !r.Wins(id) {
		return false
	}
	r.ID = id
	r.Value = v
	return true
}

// String возвращает строковое значение или "" для null.
func (r *Register) String() string {
	if r.Value == nil || r.Value.Str == nil {
		return ""
	}
	return *r.Value.Str
}

// StringPtr возвращает строковое значение или nil для null.
func (r *Register) StringPtr() *string {
	if r.Value == nil || r.Value.Str == nil {
		return nil
	}
	s := *r.Value.Str
	return &s
}

// Bool возвращает булево значение или false для null.
func (r *Register) Bool() bool {
	if r.Value == nil || r.Value.Bool == nil {
		return false
	}
	return *r.Value.Bool
}

// Int возвращает целое значение или 0 для null.
func (r *Register) Int() int64 {
	if r.Value == nil || r.Value.Int == nil {
		return 0
	}
	return *r.Value.Int
}
