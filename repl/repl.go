package repl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/engine"
	"github.com/catamtz3/cse444-simpledb/exec"
	"github.com/catamtz3/cse444-simpledb/types"
)

// Repl evaluates console commands against an engine. Outside an explicit
// begin, every command runs and commits in its own transaction.
type Repl struct {
	eng   *engine.Engine
	w     io.Writer
	tid   types.TransactionID
	inTxn bool
}

func NewRepl(eng *engine.Engine, w io.Writer) *Repl {
	return &Repl{eng: eng, w: w}
}

const help = `commands:
  tables                                  list tables
  create <table> <name:type>... [pk=<name>]
                                          create a table (types: int, string)
  insert <table> <value>...               insert one row
  scan <table> [<field> <op> <value>]     scan a table, optionally filtered
  agg <table> <op> <field> [<group>]      aggregate (ops: min max sum avg count)
  delete <table> [<field> <op> <value>]   delete rows, optionally filtered
  begin | commit | abort                  explicit transaction control
  help                                    this text
  exit                                    leave the console`

// Run evaluates one command line. io.EOF means the session should end.
func (r *Repl) Run(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "exit", "quit":
		return io.EOF
	case "help":
		fmt.Fprintln(r.w, help)
		return nil
	case "begin":
		return r.begin()
	case "commit":
		return r.commit()
	case "abort":
		return r.abort()
	}

	tid, implicit := r.txn()
	err := r.command(tid, args)
	if implicit {
		if err != nil {
			r.eng.Abort(tid)
		} else {
			err = r.eng.Commit(tid)
		}
	} else if err != nil && errors.Is(err, types.ErrTransactionAborted) {
		// The lock manager already killed this transaction; reflect that.
		r.eng.Abort(tid)
		r.inTxn = false
	}
	return err
}

func (r *Repl) txn() (types.TransactionID, bool) {
	if r.inTxn {
		return r.tid, false
	}
	return r.eng.Begin(), true
}

func (r *Repl) begin() error {
	if r.inTxn {
		return fmt.Errorf("repl: already in a transaction")
	}
	r.tid = r.eng.Begin()
	r.inTxn = true
	return nil
}

func (r *Repl) commit() error {
	if !r.inTxn {
		return fmt.Errorf("repl: not in a transaction")
	}
	r.inTxn = false
	return r.eng.Commit(r.tid)
}

func (r *Repl) abort() error {
	if !r.inTxn {
		return fmt.Errorf("repl: not in a transaction")
	}
	r.inTxn = false
	return r.eng.Abort(r.tid)
}

func (r *Repl) command(tid types.TransactionID, args []string) error {
	switch args[0] {
	case "tables":
		return r.tables()
	case "create":
		return r.create(args[1:])
	case "insert":
		return r.insert(tid, args[1:])
	case "scan":
		return r.scan(tid, args[1:])
	case "agg":
		return r.agg(tid, args[1:])
	case "delete":
		return r.delete(tid, args[1:])
	default:
		return fmt.Errorf("repl: unknown command %q; try help", args[0])
	}
}

func (r *Repl) tables() error {
	cat := r.eng.Catalog()
	tw := tablewriter.NewWriter(r.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"table", "schema", "primary key"})
	for _, name := range cat.TableNames() {
		tableID, err := cat.TableID(name)
		if err != nil {
			return err
		}
		desc, err := cat.TupleDesc(tableID)
		if err != nil {
			return err
		}
		pk, err := cat.PrimaryKey(tableID)
		if err != nil {
			return err
		}
		tw.Append([]string{name, desc.String(), pk})
	}
	tw.Render()
	return nil
}

func (r *Repl) create(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("repl: create <table> <name:type>... [pk=<name>]")
	}
	name := args[0]

	var fieldTypes []types.Type
	var names []string
	var pk string
	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "pk=") {
			pk = strings.TrimPrefix(arg, "pk=")
			continue
		}
		col, typ, ok := strings.Cut(arg, ":")
		if !ok {
			return fmt.Errorf("repl: bad column %q; want <name:type>", arg)
		}
		switch typ {
		case "int":
			fieldTypes = append(fieldTypes, types.IntType)
		case "string":
			fieldTypes = append(fieldTypes, types.StringType)
		default:
			return fmt.Errorf("repl: bad type %q; want int or string", typ)
		}
		names = append(names, col)
	}

	_, err := r.eng.CreateTable(name, fieldTypes, names, pk)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.w, "table %s created\n", name)
	return nil
}

func parseValue(t types.Type, s string) (types.Field, error) {
	if t == types.IntType {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("repl: bad int %q", s)
		}
		return types.IntField{Val: int32(v)}, nil
	}
	return types.NewStringField(s)
}

func (r *Repl) insert(tid types.TransactionID, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("repl: insert <table> <value>...")
	}
	cat := r.eng.Catalog()
	tableID, err := cat.TableID(args[0])
	if err != nil {
		return err
	}
	desc, err := cat.TupleDesc(tableID)
	if err != nil {
		return err
	}
	if len(args)-1 != desc.NumFields() {
		return fmt.Errorf("repl: got %d values for %d fields", len(args)-1,
			desc.NumFields())
	}

	t := types.NewTuple(desc)
	for i, s := range args[1:] {
		ft, _ := desc.FieldType(i)
		f, err := parseValue(ft, s)
		if err != nil {
			return err
		}
		err = t.SetField(i, f)
		if err != nil {
			return err
		}
	}

	err = r.eng.Pool().InsertTuple(tid, tableID, t)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.w, "1 row inserted")
	return nil
}

// parsePredicate resolves "<field> <op> <value>" against a scan's schema.
func parsePredicate(desc *types.TupleDesc, args []string) (exec.Predicate, error) {
	if len(args) != 3 {
		return exec.Predicate{}, fmt.Errorf("repl: want <field> <op> <value>")
	}
	i, err := desc.NameToIndex(args[0])
	if err != nil {
		return exec.Predicate{}, err
	}
	op, err := types.ParseOp(args[1])
	if err != nil {
		return exec.Predicate{}, err
	}
	ft, _ := desc.FieldType(i)
	operand, err := parseValue(ft, args[2])
	if err != nil {
		return exec.Predicate{}, err
	}
	return exec.Predicate{Field: i, Op: op, Operand: operand}, nil
}

// plan builds a scan of the table, filtered if predicate arguments are given.
func (r *Repl) plan(cat *catalog.Catalog, tid types.TransactionID, table string,
	predArgs []string) (exec.OpIterator, error) {

	tableID, err := cat.TableID(table)
	if err != nil {
		return nil, err
	}
	var it exec.OpIterator
	it, err = exec.NewSeqScan(r.eng.Pool(), cat, tid, tableID, "")
	if err != nil {
		return nil, err
	}
	if len(predArgs) > 0 {
		pred, err := parsePredicate(it.TupleDesc(), predArgs)
		if err != nil {
			return nil, err
		}
		it = exec.NewFilter(pred, it)
	}
	return it, nil
}

// render drains an iterator into a table on w and reports the row count.
func render(w io.Writer, it exec.OpIterator) error {
	err := it.Open()
	if err != nil {
		return err
	}
	defer it.Close()

	desc := it.TupleDesc()
	header := make([]string, desc.NumFields())
	for i := range header {
		header[i], _ = desc.FieldName(i)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(header)

	var rows int
	for {
		ok, err := it.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		row := make([]string, desc.NumFields())
		for i := range row {
			f, err := t.Field(i)
			if err != nil {
				return err
			}
			row[i] = f.String()
		}
		tw.Append(row)
		rows++
	}
	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", rows)
	return nil
}

func (r *Repl) scan(tid types.TransactionID, args []string) error {
	if len(args) != 1 && len(args) != 4 {
		return fmt.Errorf("repl: scan <table> [<field> <op> <value>]")
	}
	it, err := r.plan(r.eng.Catalog(), tid, args[0], args[1:])
	if err != nil {
		return err
	}
	return render(r.w, it)
}

func (r *Repl) agg(tid types.TransactionID, args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return fmt.Errorf("repl: agg <table> <op> <field> [<group>]")
	}
	op, err := exec.ParseAggOp(args[1])
	if err != nil {
		return err
	}

	scan, err := r.plan(r.eng.Catalog(), tid, args[0], nil)
	if err != nil {
		return err
	}
	aField, err := scan.TupleDesc().NameToIndex(args[2])
	if err != nil {
		return err
	}
	gbField := exec.NoGrouping
	if len(args) == 4 {
		gbField, err = scan.TupleDesc().NameToIndex(args[3])
		if err != nil {
			return err
		}
	}

	agg, err := exec.NewAggregate(scan, aField, gbField, op)
	if err != nil {
		return err
	}
	return render(r.w, agg)
}

func (r *Repl) delete(tid types.TransactionID, args []string) error {
	if len(args) != 1 && len(args) != 4 {
		return fmt.Errorf("repl: delete <table> [<field> <op> <value>]")
	}
	it, err := r.plan(r.eng.Catalog(), tid, args[0], args[1:])
	if err != nil {
		return err
	}
	return render(r.w, exec.NewDelete(r.eng.Pool(), tid, it))
}
