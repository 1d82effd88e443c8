package ports

type KeyValue struct {
	Key   string
	Value []byte
}

type OpType int

const (
	OpPut OpType = iota
	OpDelete
)

type WriteOp struct {
	Type  OpType
	Key   string
	Value []byte
}

// Storage is an ordered key-value store. Keys under a shared prefix iterate
// in lexicographic order, which the queue relies on for FIFO behavior.
type Storage interface {
	Put(key string, value []byte) error
	Get(key string) (value []byte, exists bool, err error)
	Delete(key string) error
	GetNext(prefix string) (key string, value []byte, exists bool, err error)
	GetNextAfter(prefix, afterKey string) (key string, value []byte, exists bool, err error)
	ListByPrefix(prefix string) ([]KeyValue, error)
	CountPrefix(prefix string) (int, error)
	AtomicIncrement(key string) (int64, error)
	BatchWrite(ops []WriteOp) error
	Close() error
}
