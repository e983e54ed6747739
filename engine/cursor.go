package engine

// Cursor holds {name, source plan, open?, materialized rows, position,
// terminal}. FETCH before OPEN fails; reopening resets position
// and re-executes the source.
type Cursor struct {
	name     string
	source   Node
	open     bool
	rows     []Row
	position int
	terminal bool
}

// Open executes the source plan to completion, materializing all rows.
// Reopening an already-open cursor re-executes the source and
// resets position.
func (c *Cursor) Open(ctx *ExecContext) error {
	iter, err := c.source.Execute(ctx)
	if err != nil {
		return err
	}
	rows, err := StreamAll(ctx, iter)
	if err != nil {
		return err
	}
	c.rows = rows
	c.position = -1
	c.open = true
	c.terminal = false
	return nil
}

// Fetch advances the position by one and returns the row at the new
// position, or (Row{}, false) once the cursor is exhausted. Fetching a
// cursor that was never opened is a protocol error.
func (c *Cursor) Fetch() (Row, bool, error) {
	if !c.open {
		return Row{}, false, ErrCursorProtocol.New("FETCH before OPEN on cursor " + c.name)
	}
	if c.position+1 >= len(c.rows) {
		c.terminal = true
		return Row{}, false, nil
	}
	c.position++
	return c.rows[c.position], true, nil
}

// Close releases materialized rows but keeps the binding so the cursor can
// be reopened or deallocated later.
func (c *Cursor) Close() {
	c.open = false
	c.rows = nil
	c.position = -1
}

// Name returns the cursor's declared name.
func (c *Cursor) Name() string { return c.name }

// IsOpen reports whether the cursor is currently open.
func (c *Cursor) IsOpen() bool { return c.open }
