package engine

import "strings"

// VariableScope is a LIFO stack of name->Value frames. Lookups
// walk the stack from the top; assignment updates the nearest declaring
// frame; DECLARE always creates in the top frame.
type VariableScope struct {
	frames []map[string]Value
}

// NewVariableScope returns a scope with a single base frame.
func NewVariableScope() *VariableScope {
	return &VariableScope{frames: []map[string]Value{{}}}
}

// Push adds a new frame on top. The script statements in engine/plan do
// not call it: nested BEGIN/END blocks run in the current frame.
func (v *VariableScope) Push() {
	v.frames = append(v.frames, map[string]Value{})
}

// Pop removes the top frame; the base frame is never removed.
func (v *VariableScope) Pop() {
	if len(v.frames) > 1 {
		v.frames = v.frames[:len(v.frames)-1]
	}
}

// Declare creates name in the top frame, shadowing any outer declaration.
func (v *VariableScope) Declare(name string, value Value) {
	v.frames[len(v.frames)-1][strings.ToLower(name)] = value
}

// Lookup walks the stack top-down for name.
func (v *VariableScope) Lookup(name string) (Value, bool) {
	key := strings.ToLower(name)
	for i := len(v.frames) - 1; i >= 0; i-- {
		if val, ok := v.frames[i][key]; ok {
			return val, true
		}
	}
	return Value{}, false
}

// Assign updates name in the nearest frame that declares it. If no frame
// declares it, it is created in the top frame (matching T-SQL's permissive
// SET-before-DECLARE behavior under script blocks).
func (v *VariableScope) Assign(name string, value Value) {
	key := strings.ToLower(name)
	for i := len(v.frames) - 1; i >= 0; i-- {
		if _, ok := v.frames[i][key]; ok {
			v.frames[i][key] = value
			return
		}
	}
	v.Declare(name, value)
}

// TempTableStore holds the row lists materialized for temp tables declared
// within a session, keyed case-insensitively.
type TempTableStore struct {
	tables map[string][]Row
}

func NewTempTableStore() *TempTableStore {
	return &TempTableStore{tables: map[string][]Row{}}
}

func (t *TempTableStore) Create(name string, rows []Row) {
	t.tables[strings.ToLower(name)] = rows
}

func (t *TempTableStore) Drop(name string) {
	delete(t.tables, strings.ToLower(name))
}

func (t *TempTableStore) Get(name string) ([]Row, bool) {
	rows, ok := t.tables[strings.ToLower(name)]
	return rows, ok
}

// Session holds state that outlives a single statement and is owned by the
// external caller: variables, cursors, impersonation stack, and
// temp tables.
type Session struct {
	Variables     *VariableScope
	TempTables    *TempTableStore
	cursors       map[string]*Cursor
	impersonation []string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		Variables:  NewVariableScope(),
		TempTables: NewTempTableStore(),
		cursors:    map[string]*Cursor{},
	}
}

// DeclareCursor binds name to a source plan. Duplicate DECLARE fails.
func (s *Session) DeclareCursor(name string, source Node) error {
	key := strings.ToLower(name)
	if _, ok := s.cursors[key]; ok {
		return ErrCursorProtocol.New("cursor " + name + " already declared")
	}
	s.cursors[key] = &Cursor{name: name, source: source, position: -1}
	return nil
}

// Cursor looks up a declared cursor by name.
func (s *Session) Cursor(name string) (*Cursor, error) {
	c, ok := s.cursors[strings.ToLower(name)]
	if !ok {
		return nil, ErrCursorProtocol.New("cursor " + name + " is not declared")
	}
	return c, nil
}

// DeallocateCursor removes the binding, whether the cursor is open or
// closed. Deallocating an undeclared or already-deallocated cursor fails.
func (s *Session) DeallocateCursor(name string) error {
	key := strings.ToLower(name)
	if _, ok := s.cursors[key]; !ok {
		return ErrCursorProtocol.New("cursor " + name + " is not declared")
	}
	delete(s.cursors, key)
	return nil
}

// PushPrincipal pushes an impersonated principal identifier (EXECUTE AS).
func (s *Session) PushPrincipal(principal string) {
	s.impersonation = append(s.impersonation, principal)
}

// PopPrincipal pops the current impersonated principal (REVERT). Popping an
// empty stack is a no-op: impersonation state is not auto-cleared on error
// , and a bare REVERT with nothing pushed is harmless.
func (s *Session) PopPrincipal() {
	if len(s.impersonation) > 0 {
		s.impersonation = s.impersonation[:len(s.impersonation)-1]
	}
}

// CurrentPrincipal returns the top of the impersonation stack, or "" if
// nobody is impersonated.
func (s *Session) CurrentPrincipal() string {
	if len(s.impersonation) == 0 {
		return ""
	}
	return s.impersonation[len(s.impersonation)-1]
}
