package bus

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheConfig holds cache geometry.
type CacheConfig struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
}

// DefaultCacheConfig returns a small 4-way cache with 16-byte lines.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:          1024,
		Associativity: 4,
		BlockSize:     16,
	}
}

// Validate checks that the geometry can build a directory.
func (c CacheConfig) Validate() error {
	if c.BlockSize < 4 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("cache block size %d must be a power of two >= 4", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("cache associativity must be > 0")
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d must be a multiple of associativity*block size", c.Size)
	}
	return nil
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// CachedMemory is a write-back, write-allocate LRU cache in front of a
// Memory. It is a Device in its own right and is attached in place of the
// memory it wraps. Stores trigger the backing memory's write watch as they
// happen.
type CachedMemory struct {
	config    CacheConfig
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	backing   *Memory
	stats     CacheStats
}

// NewCachedMemory wraps backing with a cache.
func NewCachedMemory(config CacheConfig, backing *Memory) (*CachedMemory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &CachedMemory{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}, nil
}

// Backing returns the wrapped memory. Its contents are stale for dirty
// lines until Flush.
func (c *CachedMemory) Backing() *Memory {
	return c.backing
}

// Stats returns cache statistics.
func (c *CachedMemory) Stats() CacheStats {
	return c.stats
}

func (c *CachedMemory) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *CachedMemory) blockAddr(offset uint32) uint64 {
	bs := uint64(c.config.BlockSize)
	return (uint64(offset) / bs) * bs
}

// lookup returns the line holding offset, filling it on a miss.
func (c *CachedMemory) lookup(offset uint32) []byte {
	blockAddr := c.blockAddr(offset)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return c.dataStore[c.blockIndex(block)]
	}

	c.stats.Misses++

	victim := c.directory.FindVictim(blockAddr)
	data := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
			c.writeBack(uint32(victim.Tag), data)
		}
	}

	for i := range data {
		data[i] = c.backing.Read8(uint32(blockAddr) + uint32(i))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return data
}

func (c *CachedMemory) writeBack(addr uint32, data []byte) {
	for i, b := range data {
		c.backing.Write8(addr+uint32(i), b)
	}
}

// ReadWord implements Device.
func (c *CachedMemory) ReadWord(offset uint32) uint32 {
	c.stats.Reads++

	data := c.lookup(offset)
	o := offset % uint32(c.config.BlockSize)

	return lineWord(data, o)
}

func lineWord(data []byte, o uint32) uint32 {
	return uint32(data[o]) | uint32(data[o+1])<<8 |
		uint32(data[o+2])<<16 | uint32(data[o+3])<<24
}

// WriteWord implements Device.
func (c *CachedMemory) WriteWord(offset uint32, value uint32) {
	c.stats.Writes++

	data := c.lookup(offset)
	o := offset % uint32(c.config.BlockSize)
	c.backing.observe(offset, lineWord(data, o), value)

	for i := uint32(0); i < 4; i++ {
		data[o+i] = byte(value >> (i * 8))
	}

	block := c.directory.Lookup(0, c.blockAddr(offset))
	block.IsDirty = true
}

// IsInterrupting implements Device.
func (c *CachedMemory) IsInterrupting() bool {
	return false
}

// Tick implements Device.
func (c *CachedMemory) Tick() {}

// Flush writes back all dirty lines and invalidates the cache.
func (c *CachedMemory) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.writeBack(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}
