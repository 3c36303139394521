// Package badger 基于 BadgerDB 的存储引擎
//
//	db, err := badger.New(engine.DefaultConfig(dir))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.Put([]byte("k"), []byte("v"))
package badger
