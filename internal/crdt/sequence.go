package crdt

// slot - позиция элемента в реплицируемой последовательности.
// Перемещение элемента = удаление старого слота + вставка нового.
type slot struct {
	item    string
	id      ID
	removed bool
}

// sequence - RGA (Replicated Growable Array) над слотами.
// Удаленные слоты остаются в массиве как tombstones, потому что
// на них могут ссылаться вставки других реплик.
type sequence struct {
	slots []*slot
	max   ID // наибольший ID интегрированной операции
}

func (s *sequence) reset() {
	s.slots = nil
	s.max = ID{}
}

func (s *sequence) indexOf(id ID) int {
	for i, sl := range s.slots {
		if sl.id == id {
			return i
		}
	}
	return -1
}

// tail возвращает ID последнего слота или nil для пустой последовательности.
func (s *sequence) tail() *ID {
	if len(s.slots) == 0 {
		return nil
	}
	id := s.slots[len(s.slots)-1].id
	return &id
}

// inOrder reports whether op can be integrated without rebuilding.
func (s *sequence) inOrder(op Op) bool {
	return s.max.Less(op.ID)
}

// integrate применяет insert_slot или remove_slot.
// Операции с еще не полученными зависимостями пропускаются; они остаются
// в журнале и будут применены при следующей перестройке.
func (s *sequence) integrate(op Op) {
	if s.max.Less(op.ID) {
		s.max = op.ID
	}

	switch op.Kind {
	case OpInsertSlot:
		pos := 0
		if op.Origin != nil {
			idx := s.indexOf(*op.Origin)
			if idx < 0 {
				return
			}
			pos = idx + 1
		}
		// RGA: соседей с большим ID (более поздние вставки после того же origin) пропускаем
		for pos < len(s.slots) && op.ID.Less(s.slots[pos].id) {
			pos++
		}
		s.slots = append(s.slots, nil)
		copy(s.slots[pos+1:], s.slots[pos:])
		s.slots[pos] = &slot{id: op.ID, item: op.Item}

	case OpRemoveSlot:
		if idx := s.indexOf(*op.Target); idx >= 0 {
			s.slots[idx].removed = true
		}
	}
}
