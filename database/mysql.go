/*
 * COMOSAT - An SDN Control Plane for Space-Air-Ground Integrated Networks
 *
 * Copyright (C) 2025-2026 SAGIN SDN Project. All rights reserved.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

const (
	maxDeadlockRetry = 5

	deadlockErrCode uint16 = 1213

	clusterDialerNetwork = "cluster"
)

var (
	logger = logging.MustGetLogger("database")

	maxIdleConn = runtime.NumCPU()
	maxOpenConn = maxIdleConn * 2
)

type MySQL struct {
	db     *sql.DB
	random *rand.Rand
}

func NewMySQL() (*MySQL, error) {
	addr := viper.GetString("mysql.addr")
	if err := validateClusterAddr(addr); err != nil {
		return nil, err
	}
	// Register the custom dialer.
	mysql.RegisterDial(clusterDialerNetwork, clusterDialer)

	param := "readTimeout=1m&writeTimeout=1m&parseTime=true&loc=Local&maxAllowedPacket=0"
	dsn := fmt.Sprintf("%v:%v@%v(%v)/%v?%v", viper.GetString("mysql.username"), viper.GetString("mysql.password"), clusterDialerNetwork, addr, viper.GetString("mysql.name"), param)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	// Make sure that all the connections are established to a same node, instead of distributing them into multiple nodes.
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &MySQL{
		db:     db,
		random: rand.New(&randomSource{src: rand.NewSource(time.Now().Unix())}),
	}, nil
}

func validateClusterAddr(addr string) error {
	if len(addr) == 0 {
		return errors.New("empty cluster address")
	}

	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")
	if len(token) == 0 {
		return fmt.Errorf("invalid cluster address: %v", addr)
	}

	for _, v := range token {
		if _, err := net.ResolveTCPAddr("tcp", v); err != nil {
			return fmt.Errorf("invalid cluster address: %v: %v", v, err)
		}
	}

	return nil
}

// clusterDialer tries to sequentially connect to each hosts from the address in the
// order of their appearance and then returns the first successfully connected one.
func clusterDialer(addr string) (net.Conn, error) {
	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")

	for _, v := range token {
		logger.Debugf("dialing to %v", v)
		conn, err := net.DialTimeout("tcp", v, 5*time.Second)
		if err == nil {
			// Connected!
			logger.Debugf("successfully connected to %v", v)
			return conn, nil
		}
		logger.Errorf("failed to dial: %v", err)
	}

	return nil, errors.New("failed to dial: no available cluster node")
}

func isDeadlock(err error) bool {
	e, ok := err.(*mysql.MySQLError)
	if !ok {
		return false
	}

	return e.Number == deadlockErrCode
}

func (r *MySQL) query(f func(*sql.Tx) error) error {
	deadlockRetry := 0

	for {
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}

		err = f(tx)
		// Success?
		if err == nil {
			// Yes! but Commit also may raise an error.
			err = tx.Commit()
			// Success?
			if err == nil {
				// Transaction committed successfully!
				return nil
			}
			// Fallthrough!
		}
		// No! query failed.
		tx.Rollback()

		// Need to retry due to a deadlock?
		if !isDeadlock(err) || deadlockRetry >= maxDeadlockRetry {
			// No, do not retry and just return the error.
			return err
		}
		// Yes, a deadlock occurrs. Re-execute the queries again after some sleep!
		logger.Infof("query failed due to a deadlock: caller=%v", caller())
		time.Sleep(time.Duration(r.random.Int31n(500)) * time.Millisecond)
		deadlockRetry++
	}
}

func caller() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}

	f := runtime.FuncForPC(pc)
	if f == nil {
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("%v (%v:%v)", f.Name(), file, line)
}

// AddSlotReport inserts the summary row of one slot transition. The ID and
// Timestamp fields of report are ignored; the database assigns them.
func (r *MySQL) AddSlotReport(report SlotReport) error {
	f := func(tx *sql.Tx) error {
		qry := "INSERT INTO `slot_report` (`slot`, `applied`, `deferred`, `degraded`, `timestamp`) "
		qry += "VALUES (?, ?, ?, ?, NOW())"
		_, err := tx.Exec(qry, report.Slot, report.Applied, report.Deferred, report.Degraded)

		return err
	}

	return r.query(f)
}

// AddRemappings inserts one row per delta outcome of a slot transition, all
// in a single transaction. The ID and Timestamp fields of the rows are
// ignored; the database assigns them.
func (r *MySQL) AddRemappings(rows []Remapping) error {
	if len(rows) == 0 {
		return nil
	}

	f := func(tx *sql.Tx) error {
		qry := "INSERT INTO `remapping` (`slot`, `switch`, `old_domain`, `new_domain`, `old_controller`, `new_controller`, `applied`, `timestamp`) "
		qry += "VALUES (?, ?, ?, ?, ?, ?, ?, NOW())"
		for _, v := range rows {
			if _, err := tx.Exec(qry, v.Slot, v.Switch, v.OldDomain, v.NewDomain, v.OldController, v.NewController, v.Applied); err != nil {
				return err
			}
		}

		return nil
	}

	return r.query(f)
}

// SlotReports returns the most recent slot transition summaries, newest
// first. result can be nil on empty result.
func (r *MySQL) SlotReports(limit uint8) (result []SlotReport, err error) {
	f := func(tx *sql.Tx) error {
		qry := "SELECT `id`, `slot`, `applied`, `deferred`, `degraded`, `timestamp` "
		qry += "FROM `slot_report` "
		qry += "ORDER BY `id` DESC "
		if limit > 0 {
			qry += fmt.Sprintf("LIMIT %v", limit)
		}

		rows, err := tx.Query(qry)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var v SlotReport
			if err := rows.Scan(&v.ID, &v.Slot, &v.Applied, &v.Deferred, &v.Degraded, &v.Timestamp); err != nil {
				return err
			}
			result = append(result, v)
		}

		return rows.Err()
	}

	if err = r.query(f); err != nil {
		return nil, err
	}

	return result, nil
}

// Remappings returns the delta rows recorded for slot, in ascending switch
// order. result can be nil on empty result.
func (r *MySQL) Remappings(slot uint64) (result []Remapping, err error) {
	f := func(tx *sql.Tx) error {
		qry := "SELECT `id`, `slot`, `switch`, `old_domain`, `new_domain`, `old_controller`, `new_controller`, `applied`, `timestamp` "
		qry += "FROM `remapping` "
		qry += "WHERE `slot` = ? "
		qry += "ORDER BY `switch` ASC"

		rows, err := tx.Query(qry, slot)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var v Remapping
			if err := rows.Scan(&v.ID, &v.Slot, &v.Switch, &v.OldDomain, &v.NewDomain, &v.OldController, &v.NewController, &v.Applied, &v.Timestamp); err != nil {
				return err
			}
			result = append(result, v)
		}

		return rows.Err()
	}

	if err = r.query(f); err != nil {
		return nil, err
	}

	return result, nil
}

// Elect selects a new master as uid if there is a no existing master that has
// been updated within expiration. elected will be true if this uid has been
// elected as the new master or was already elected.
func (r *MySQL) Elect(uid string, expiration time.Duration) (elected bool, err error) {
	f := func(tx *sql.Tx) error {
		var name string
		var timestamp time.Time
		qry := "SELECT `name`, `timestamp` "
		qry += "FROM `election` "
		qry += "WHERE `type` = 'MASTER' "
		qry += "FOR UPDATE" // Lock the selected row even if there is a no exsiting one.
		err = tx.QueryRow(qry).Scan(&name, &timestamp)
		// Real error?
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		// No existing master?
		if err == sql.ErrNoRows {
			// I am the newly elected master!
			qry = "INSERT INTO `election` (`name`, `type`, `timestamp`) "
			qry += "VALUES (?, 'MASTER', NOW())"
			if _, err := tx.Exec(qry, uid); err != nil {
				return err
			}
			elected = true
		} else {
			// Already elected or another stale master?
			if name == uid || time.Now().Sub(timestamp) > expiration {
				qry = "UPDATE `election` SET `name` = ?, `timestamp` = NOW() WHERE `type` = 'MASTER'"
				if _, err := tx.Exec(qry, uid); err != nil {
					return err
				}
				elected = true
			}
		}

		return nil
	}

	if err := r.query(f); err != nil {
		return false, err
	}

	return elected, nil
}
