package inmemdb

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/catalog"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
)

type (
	// DB is a process-local database. Transactions are serialized and roll back by restoring
	// a snapshot of the tables. Writes outside a transaction wait for the running one, but reads
	// do not: a read made outside a transaction sees its uncommitted writes (read uncommitted).
	DB struct {
		txMu sync.Mutex   // held by the outermost transaction and by writes made outside one
		mu   sync.RWMutex // protects data
		data *tables
	}

	tables struct {
		seqs map[string]int

		users               map[int]user.User
		studentInstitutions map[[2]int]bool // {studentID, institutionID}

		lookups      map[catalog.Kind]map[int]catalog.Lookup
		departments  map[int]catalog.Department
		provinces    map[int]catalog.Province
		institutions map[int]catalog.Institution

		courses   map[int]course.Course
		resources map[int]course.Resource
		sections  map[int]course.Section
		comments  map[int]course.Comment
		quizzes   map[int]course.Quiz
		questions map[int]course.Question
		feedback  map[int]course.Feedback

		enrollments map[int]enrollment.Enrollment
		progress    map[int]enrollment.SectionProgress
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	data := &tables{
		seqs:                make(map[string]int),
		users:               make(map[int]user.User),
		studentInstitutions: make(map[[2]int]bool),
		lookups:             make(map[catalog.Kind]map[int]catalog.Lookup),
		departments:         make(map[int]catalog.Department),
		provinces:           make(map[int]catalog.Province),
		institutions:        make(map[int]catalog.Institution),
		courses:             make(map[int]course.Course),
		resources:           make(map[int]course.Resource),
		sections:            make(map[int]course.Section),
		comments:            make(map[int]course.Comment),
		quizzes:             make(map[int]course.Quiz),
		questions:           make(map[int]course.Question),
		feedback:            make(map[int]course.Feedback),
		enrollments:         make(map[int]enrollment.Enrollment),
		progress:            make(map[int]enrollment.SectionProgress),
	}
	for _, kind := range catalog.Kinds {
		data.lookups[kind] = make(map[int]catalog.Lookup)
	}
	return &DB{data: data}
}

func (t *tables) clone() *tables {
	c := &tables{
		seqs:                maps.Clone(t.seqs),
		users:               maps.Clone(t.users),
		studentInstitutions: maps.Clone(t.studentInstitutions),
		lookups:             make(map[catalog.Kind]map[int]catalog.Lookup, len(t.lookups)),
		departments:         maps.Clone(t.departments),
		provinces:           maps.Clone(t.provinces),
		institutions:        maps.Clone(t.institutions),
		courses:             maps.Clone(t.courses),
		resources:           maps.Clone(t.resources),
		sections:            maps.Clone(t.sections),
		comments:            maps.Clone(t.comments),
		quizzes:             maps.Clone(t.quizzes),
		questions:           maps.Clone(t.questions),
		feedback:            maps.Clone(t.feedback),
		enrollments:         maps.Clone(t.enrollments),
		progress:            maps.Clone(t.progress),
	}
	for kind, table := range t.lookups {
		c.lookups[kind] = maps.Clone(table)
	}
	return c
}

func (t *tables) nextID(table string) int {
	t.seqs[table]++
	return t.seqs[table]
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// InTx runs fn in a transaction. Nested calls behave like savepoints.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if !inTx(ctx) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}

	db.mu.RLock()
	snapshot := db.data.clone()
	db.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			db.restore(snapshot)
			panic(p)
		}
		if err != nil {
			db.restore(snapshot)
		}
	}()
	return fn(ctx)
}

func (db *DB) restore(snapshot *tables) {
	db.mu.Lock()
	db.data = snapshot
	db.mu.Unlock()
}

// read runs fn with shared access to the data. It does not wait for running transactions.
func (db *DB) read(fn func(t *tables)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.data)
}

// write runs fn with exclusive access to the data. Outside a transaction it also waits for
// running transactions, so that their rollback cannot undo it.
func (db *DB) write(ctx context.Context, fn func(t *tables) error) error {
	if !inTx(ctx) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data)
}

// byID returns the rows of table accepted by keep (all when nil), ordered by id.
func byID[V any](table map[int]V, keep func(V) bool) []V {
	ids := make([]int, 0, len(table))
	for id, row := range table {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	rows := make([]V, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, table[id])
	}
	return rows
}
